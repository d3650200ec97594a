package corpus

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zpam/mailtype/pkg/email"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clean.lua")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLuaHookMetadataAndApply(t *testing.T) {
	path := writeScript(t, `-- @name strip-greeting
-- @description removes greetings
function clean(text, message)
  if message.from == "boss@example.com" then
    return false
  end
  return string.upper(text)
end
`)
	hook, err := NewLuaHook(path)
	require.NoError(t, err)
	defer hook.Close()

	assert.Equal(t, "strip-greeting", hook.Name())
	assert.Equal(t, "removes greetings", hook.Description())

	out, keep, err := hook.Apply(context.Background(), &email.Email{From: "me@example.com"}, "hi")
	require.NoError(t, err)
	assert.True(t, keep)
	assert.Equal(t, "HI", out)

	_, keep, err = hook.Apply(context.Background(), &email.Email{From: "boss@example.com"}, "hi")
	require.NoError(t, err)
	assert.False(t, keep)
}

func TestLuaHookRequiresCleanFunction(t *testing.T) {
	_, err := NewLuaHook(writeScript(t, "x = 1\n"))
	assert.Error(t, err)

	_, err = NewLuaHook(writeScript(t, "function clean(\n"))
	assert.Error(t, err)

	_, err = NewLuaHook(filepath.Join(t.TempDir(), "missing.lua"))
	assert.Error(t, err)
}

func TestLuaHookRejectsBadReturnAndRuntimeErrors(t *testing.T) {
	hook, err := NewLuaHook(writeScript(t, "function clean(text) return 42 end\n"))
	require.NoError(t, err)
	defer hook.Close()
	_, _, err = hook.Apply(context.Background(), nil, "x")
	assert.Error(t, err)

	failing, err := NewLuaHook(writeScript(t, `function clean(text) error("boom") end`))
	require.NoError(t, err)
	defer failing.Close()
	_, _, err = failing.Apply(context.Background(), nil, "x")
	assert.Error(t, err)
}

func TestLuaHookTimeout(t *testing.T) {
	hook, err := NewLuaHook(writeScript(t, "function clean(text) while true do end end\n"))
	require.NoError(t, err)
	defer hook.Close()
	hook.timeout = 50 * time.Millisecond

	_, _, err = hook.Apply(context.Background(), nil, "x")
	assert.Error(t, err)
}

func TestLuaHookAPI(t *testing.T) {
	hook, err := NewLuaHook(writeScript(t, `
function clean(text, message)
  return mailtype.normalize(text) .. " " .. mailtype.domain_from_email(message.from)
end
`))
	require.NoError(t, err)
	defer hook.Close()

	out, keep, err := hook.Apply(context.Background(), &email.Email{From: "me@example.com"}, "Hello, World!")
	require.NoError(t, err)
	assert.True(t, keep)
	assert.Equal(t, "hello world example.com", out)
}
