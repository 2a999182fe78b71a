package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidEmail(t *testing.T) {
	assert.True(t, IsValidEmail("someone@example.com"))
	assert.False(t, IsValidEmail("someone"))
	assert.False(t, IsValidEmail("someone@nodot"))
}

func TestIsComplexPassword(t *testing.T) {
	assert.True(t, IsComplexPassword("Str0ng!pass"))
	assert.False(t, IsComplexPassword("short1!"))
	assert.False(t, IsComplexPassword("alllowercase1!"))
	assert.False(t, IsComplexPassword("NoDigits!!"))
	assert.False(t, IsComplexPassword("NoSpecials11"))
}
