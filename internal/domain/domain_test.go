package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	r, ok := ParseRole(" Admin ")
	assert.True(t, ok)
	assert.Equal(t, RoleAdmin, r)

	_, ok = ParseRole("owner")
	assert.False(t, ok)
	assert.False(t, Role("").Valid())
}

func TestCapabilities(t *testing.T) {
	for _, r := range []Role{RoleSuperAdmin, RoleAdmin} {
		c := CapabilitiesFor(r)
		assert.True(t, c.CanMutatePipeline && c.CanManageUsers && c.CanEditLeads && c.CanEditFranchises, r)
	}
	assert.Equal(t, Capabilities{}, CapabilitiesFor(RoleUser))
}

func TestNewCallerWithoutProfileHasNoCapabilities(t *testing.T) {
	c := NewCaller("u1", "a@b.co", RoleAdmin, false)
	assert.Equal(t, Capabilities{}, c.Capabilities)
	assert.Empty(t, c.Role)

	c = NewCaller("u1", "a@b.co", RoleAdmin, true)
	assert.True(t, c.Capabilities.CanManageUsers)
	assert.True(t, ServiceCaller().Service)
}

func TestAvatarURL(t *testing.T) {
	assert.Equal(t,
		"https://api.dicebear.com/7.x/avataaars/svg?seed=ana%2Btest%40example.com",
		AvatarURL("ana+test@example.com"))
	assert.Equal(t, "ana@example.com", NormalizeEmail("  Ana@Example.COM "))
}

func TestScore(t *testing.T) {
	assert.Equal(t, 0, Score(0, CapacityUnknown))
	assert.Equal(t, 50, Score(3, CapacityMedium))
	assert.Equal(t, 90, Score(5, CapacityVeryHigh))
	assert.Equal(t, 100, Score(9, CapacityVeryHigh))
	assert.Equal(t, 10, Score(-2, CapacityLow))
}

func TestErrorKinds(t *testing.T) {
	base := errors.New("connection reset")
	err := fmt.Errorf("create: %w", Upstream("identity store", base))

	assert.Equal(t, KindUpstream, KindOf(err))
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "identity store: connection reset", Message(err))

	assert.Equal(t, KindUpstream, KindOf(base))
	assert.Equal(t, Kind(""), KindOf(nil))
	assert.True(t, IsKind(Conflict("dup"), KindConflict))
	assert.False(t, IsKind(nil, KindConflict))
	assert.Equal(t, "password too short", Validationf("password too %s", "short").Error())
}

func TestEnums(t *testing.T) {
	assert.True(t, SourceReferral.Valid())
	assert.False(t, SourceChannel("tv").Valid())
	assert.True(t, CapacityVeryHigh.Valid())
	assert.True(t, ExperienceSome.Valid())
	assert.False(t, CommunicationType("fax").Valid())
}
