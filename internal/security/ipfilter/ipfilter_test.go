package ipfilter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmptyFilterAllowsEverything(t *testing.T) {
	f := New(nil)
	assert.True(t, f.Empty())
	assert.True(t, f.Allowed("203.0.113.9"))
	assert.True(t, f.Allowed("not-an-address"))
}

func TestExactAddressMatch(t *testing.T) {
	f := New([]string{"203.0.113.9", "2001:db8::1"})
	assert.False(t, f.Empty())
	assert.True(t, f.Allowed("203.0.113.9"))
	assert.True(t, f.Allowed("2001:db8::1"))
	assert.False(t, f.Allowed("203.0.113.10"))
}

func TestCIDRMatch(t *testing.T) {
	f := New([]string{"10.0.0.0/8"})
	assert.True(t, f.Allowed("10.1.2.3"))
	assert.False(t, f.Allowed("11.0.0.1"))
}

func TestLiteralEntries(t *testing.T) {
	f := New([]string{"localhost"})
	assert.True(t, f.Allowed("localhost"))
	assert.False(t, f.Allowed("127.0.0.2"))
}

func TestUnparseableClientDeniedWhenRestricted(t *testing.T) {
	f := New([]string{"10.0.0.0/8"})
	assert.False(t, f.Allowed("garbage"))
}

func TestMappedIPv4Normalized(t *testing.T) {
	f := New([]string{"203.0.113.9"})
	assert.True(t, f.Allowed("::ffff:203.0.113.9"))
}
