package roles

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	for _, s := range []string{"requester", "mechanic", "admin"} {
		r, ok := Parse(s)
		assert.True(t, ok)
		assert.Equal(t, s, r.String())
	}

	_, ok := Parse("rider")
	assert.False(t, ok)
	_, ok = Parse("")
	assert.False(t, ok)
}

func TestCapabilities(t *testing.T) {
	assert.True(t, Requester.Can(CreateRequest))
	assert.True(t, Requester.Can(CancelRequest))
	assert.False(t, Requester.Can(AcceptRequest))
	assert.False(t, Requester.Can(ViewAllRequests))

	assert.True(t, Mechanic.Can(AcceptRequest))
	assert.True(t, Mechanic.Can(CompleteRequest))
	assert.True(t, Mechanic.Can(ViewAllRequests))
	assert.False(t, Mechanic.Can(CreateRequest))

	assert.True(t, Admin.Can(CreateRequest))
	assert.True(t, Admin.Can(ViewAllRequests))

	var unknown Role = "rider"
	assert.False(t, unknown.Can(AcceptRequest))
}
