package bucket

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"attendgate/pkg/requestcontext"
)

const (
	testLimit    = 5
	testWindow   = time.Minute
	testBlockFor = 5 * time.Minute
)

type InMemoryBucketStoreSuite struct {
	suite.Suite
	store *InMemoryBucketStore
	base  time.Time
}

func TestInMemoryBucketStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryBucketStoreSuite))
}

func (s *InMemoryBucketStoreSuite) SetupTest() {
	s.store = NewInMemoryBucketStore()
	s.base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func (s *InMemoryBucketStoreSuite) at(offset time.Duration) context.Context {
	return requestcontext.WithTime(context.Background(), s.base.Add(offset))
}

func (s *InMemoryBucketStoreSuite) TestAllow() {
	s.Run("first request allowed", func() {
		result, err := s.store.Allow(s.at(0), "key:first", testLimit, testWindow, testBlockFor)
		s.Require().NoError(err)
		s.True(result.Allowed)
		s.Equal(testLimit, result.Limit)
		s.Equal(testLimit-1, result.Remaining)
	})

	s.Run("requests up to limit allowed", func() {
		for i := 0; i < testLimit; i++ {
			result, err := s.store.Allow(s.at(time.Duration(i)*time.Second), "key:limit", testLimit, testWindow, testBlockFor)
			s.Require().NoError(err)
			s.True(result.Allowed)
		}
	})

	s.Run("request over limit blocks the client", func() {
		for i := 0; i < testLimit; i++ {
			_, err := s.store.Allow(s.at(time.Duration(i)*time.Second), "key:over", testLimit, testWindow, testBlockFor)
			s.Require().NoError(err)
		}
		result, err := s.store.Allow(s.at(10*time.Second), "key:over", testLimit, testWindow, testBlockFor)
		s.Require().NoError(err)
		s.False(result.Allowed)
		s.True(result.Blocked)
		s.True(result.NewlyBlocked)
		s.Equal(0, result.Remaining)
		s.Equal(s.base.Add(10*time.Second).Add(testBlockFor), result.BlockedUntil)
	})

	s.Run("old timestamps slide out of the window", func() {
		for i := 0; i < testLimit; i++ {
			_, err := s.store.Allow(s.at(time.Duration(i)*time.Second), "key:slide", testLimit, testWindow, testBlockFor)
			s.Require().NoError(err)
		}
		result, err := s.store.Allow(s.at(testWindow+30*time.Second), "key:slide", testLimit, testWindow, testBlockFor)
		s.Require().NoError(err)
		s.True(result.Allowed)
		s.Equal(testLimit-1, result.Remaining)
	})
}

func (s *InMemoryBucketStoreSuite) TestBlockOutlivesWindow() {
	for i := 0; i < testLimit; i++ {
		_, err := s.store.Allow(s.at(time.Duration(i)*time.Second), "key:block", testLimit, testWindow, testBlockFor)
		s.Require().NoError(err)
	}

	result, err := s.store.Allow(s.at(10*time.Second), "key:block", testLimit, testWindow, testBlockFor)
	s.Require().NoError(err)
	s.True(result.NewlyBlocked)

	// Two windows later the burst itself has aged out, but the block holds.
	result, err = s.store.Allow(s.at(2*testWindow), "key:block", testLimit, testWindow, testBlockFor)
	s.Require().NoError(err)
	s.False(result.Allowed)
	s.True(result.Blocked)
	s.False(result.NewlyBlocked)
	s.Positive(result.RetryAfter)

	// Past the block expiry the client starts clean.
	result, err = s.store.Allow(s.at(10*time.Second+testBlockFor+time.Second), "key:block", testLimit, testWindow, testBlockFor)
	s.Require().NoError(err)
	s.True(result.Allowed)
	s.Equal(testLimit-1, result.Remaining)
}

func (s *InMemoryBucketStoreSuite) TestNewlyBlockedOnlyOnTransition() {
	for i := 0; i < testLimit; i++ {
		_, err := s.store.Allow(s.at(time.Duration(i)*time.Second), "key:newly", testLimit, testWindow, testBlockFor)
		s.Require().NoError(err)
	}

	first, err := s.store.Allow(s.at(10*time.Second), "key:newly", testLimit, testWindow, testBlockFor)
	s.Require().NoError(err)
	s.True(first.NewlyBlocked)

	second, err := s.store.Allow(s.at(11*time.Second), "key:newly", testLimit, testWindow, testBlockFor)
	s.Require().NoError(err)
	s.True(second.Blocked)
	s.False(second.NewlyBlocked)
}

func (s *InMemoryBucketStoreSuite) TestReset() {
	for i := 0; i < testLimit+1; i++ {
		_, err := s.store.Allow(s.at(time.Duration(i)*time.Second), "key:reset", testLimit, testWindow, testBlockFor)
		s.Require().NoError(err)
	}

	s.Require().NoError(s.store.Reset(context.Background(), "key:reset"))

	result, err := s.store.Allow(s.at(20*time.Second), "key:reset", testLimit, testWindow, testBlockFor)
	s.Require().NoError(err)
	s.True(result.Allowed)
	s.Equal(testLimit-1, result.Remaining)
}

func (s *InMemoryBucketStoreSuite) TestEvict() {
	_, err := s.store.Allow(s.at(0), "key:idle", testLimit, testWindow, testBlockFor)
	s.Require().NoError(err)
	_, err = s.store.Allow(s.at(0), "key:active", testLimit, testWindow, testBlockFor)
	s.Require().NoError(err)
	for i := 0; i < testLimit+1; i++ {
		_, err = s.store.Allow(s.at(time.Duration(i)*time.Second), "key:blocked", testLimit, testWindow, testBlockFor)
		s.Require().NoError(err)
	}
	s.Equal(3, s.store.size())

	// key:idle and key:active are both stale at the sweep time, but the
	// blocked entry must survive so its penalty is not forgotten.
	s.store.evict(s.base.Add(2*testWindow), testWindow)
	s.Equal(1, s.store.size())

	// Once the block lapses the entry goes too.
	s.store.evict(s.base.Add(testBlockFor+2*testWindow), testWindow)
	s.Equal(0, s.store.size())
}
