package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type TokenServiceSuite struct {
	suite.Suite
	service *Service
	now     time.Time
}

func TestTokenServiceSuite(t *testing.T) {
	suite.Run(t, new(TokenServiceSuite))
}

func (s *TokenServiceSuite) SetupTest() {
	s.service = NewService("test-signing-key", "attendgate", time.Hour)
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func (s *TokenServiceSuite) TestIssueAndVerify() {
	signed, err := s.service.Issue(Claims{Gateway: true, Backend: "hq"}, s.now)
	s.Require().NoError(err)
	s.NotEmpty(signed)

	claims, err := s.service.Verify(signed)
	s.Require().NoError(err)
	s.True(claims.Gateway)
	s.Equal("hq", claims.Backend)
	s.Equal("attendgate", claims.Issuer)
	s.NotEmpty(claims.ID)
	s.Equal(s.now.Add(time.Hour).Unix(), claims.ExpiresAt.Unix())
}

func (s *TokenServiceSuite) TestVerifyRejectsWrongKey() {
	signed, err := s.service.Issue(Claims{Gateway: true}, s.now)
	s.Require().NoError(err)

	other := NewService("different-key", "attendgate", time.Hour)
	_, err = other.Verify(signed)
	s.ErrorIs(err, ErrInvalidToken)
}

func (s *TokenServiceSuite) TestVerifyRejectsExpired() {
	signed, err := s.service.Issue(Claims{Gateway: true}, time.Now().Add(-2*time.Hour))
	s.Require().NoError(err)

	_, err = s.service.Verify(signed)
	s.ErrorIs(err, ErrInvalidToken)
}

func (s *TokenServiceSuite) TestVerifyRejectsGarbage() {
	_, err := s.service.Verify("not.a.token")
	s.ErrorIs(err, ErrInvalidToken)

	_, err = s.service.Verify("")
	s.ErrorIs(err, ErrInvalidToken)
}

func (s *TokenServiceSuite) TestUniqueTokenIDs() {
	a, err := s.service.Issue(Claims{}, s.now)
	s.Require().NoError(err)
	b, err := s.service.Issue(Claims{}, s.now)
	s.Require().NoError(err)
	s.NotEqual(a, b)
}
