package validators

import (
	"strings"
	"testing"

	"github.com/Blunt0FF/Krealgram-sub001/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestValidator(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.Validate(&models.CreateCommentRequest{Body: "nice"}))
	assert.ErrorIs(t, v.Validate(&models.CreateCommentRequest{}), models.ErrValidation)
	assert.ErrorIs(t, v.Validate(&models.CreateCommentRequest{Body: strings.Repeat("x", 501)}), models.ErrValidation)
	assert.ErrorIs(t, v.Validate(&models.CreateConversationRequest{Participants: []string{""}}), models.ErrValidation)
}
