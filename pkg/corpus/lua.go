package corpus

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	lua "github.com/yuin/gopher-lua"
	"github.com/zpam/mailtype/internal/logger"
	"github.com/zpam/mailtype/pkg/email"
)

// LuaHook runs a user script over every message body before cleaning. The
// script defines
//
//	function clean(text, message) ... end
//
// and returns the replacement text, or nil to drop the message. message is a
// table with from, to, subject and date fields.
type LuaHook struct {
	name        string
	description string
	scriptPath  string
	timeout     time.Duration

	mu  sync.Mutex
	vm  *lua.LState
	log *log.Logger
}

// NewLuaHook loads the script and checks that it defines clean.
func NewLuaHook(scriptPath string) (*LuaHook, error) {
	metadata, err := extractLuaMetadata(scriptPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read lua script: %w", err)
	}

	h := &LuaHook{
		name:        metadata.Name,
		description: metadata.Description,
		scriptPath:  scriptPath,
		timeout:     5 * time.Second,
		log:         logger.New("lua"),
	}

	vm := lua.NewState()
	h.registerAPI(vm)
	if err := vm.DoFile(scriptPath); err != nil {
		vm.Close()
		return nil, fmt.Errorf("failed to load script %s: %w", scriptPath, err)
	}
	if vm.GetGlobal("clean").Type() != lua.LTFunction {
		vm.Close()
		return nil, fmt.Errorf("script %s does not define clean(text)", scriptPath)
	}
	h.vm = vm

	return h, nil
}

// Name returns the script's @name, or its file name.
func (h *LuaHook) Name() string { return h.name }

// Description returns the script's @description.
func (h *LuaHook) Description() string { return h.description }

// Apply runs clean on text. keep is false when the script returned nil or
// false for the message.
func (h *LuaHook) Apply(ctx context.Context, msg *email.Email, text string) (cleaned string, keep bool, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	timeoutCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	h.vm.SetContext(timeoutCtx)
	defer h.vm.RemoveContext()

	fn := h.vm.GetGlobal("clean")
	h.vm.Push(fn)
	h.vm.Push(lua.LString(text))
	h.vm.Push(h.messageTable(msg))
	if err := h.vm.PCall(2, 1, nil); err != nil {
		return "", false, fmt.Errorf("lua clean failed: %w", err)
	}
	result := h.vm.Get(-1)
	h.vm.Pop(1)

	switch v := result.(type) {
	case lua.LString:
		return string(v), true, nil
	case *lua.LNilType:
		return "", false, nil
	case lua.LBool:
		if !bool(v) {
			return "", false, nil
		}
	}
	return "", false, fmt.Errorf("lua clean must return a string or nil, got %s", result.Type())
}

// Close releases the Lua VM.
func (h *LuaHook) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.vm != nil {
		h.vm.Close()
		h.vm = nil
	}
}

func (h *LuaHook) messageTable(msg *email.Email) *lua.LTable {
	t := h.vm.NewTable()
	if msg == nil {
		return t
	}
	h.vm.SetField(t, "from", lua.LString(msg.From))
	h.vm.SetField(t, "to", lua.LString(strings.Join(msg.To, ",")))
	h.vm.SetField(t, "subject", lua.LString(msg.Subject))
	if !msg.Date.IsZero() {
		h.vm.SetField(t, "date", lua.LNumber(msg.Date.Unix()))
	}
	return t
}

// registerAPI exposes helper functions under the global mailtype table.
func (h *LuaHook) registerAPI(vm *lua.LState) {
	api := vm.NewTable()
	vm.SetGlobal("mailtype", api)

	vm.SetField(api, "log", vm.NewFunction(h.luaLog))
	vm.SetField(api, "contains", vm.NewFunction(luaContains))
	vm.SetField(api, "normalize", vm.NewFunction(luaNormalize))
	vm.SetField(api, "domain_from_email", vm.NewFunction(luaDomainFromEmail))
}

func (h *LuaHook) luaLog(vm *lua.LState) int {
	h.log.Info(vm.CheckString(1), "script", h.name)
	return 0
}

func luaContains(vm *lua.LState) int {
	haystack := vm.CheckString(1)
	needle := vm.CheckString(2)
	vm.Push(lua.LBool(strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))))
	return 1
}

func luaNormalize(vm *lua.LState) int {
	vm.Push(lua.LString(NormalizeText(vm.CheckString(1))))
	return 1
}

func luaDomainFromEmail(vm *lua.LState) int {
	parts := strings.Split(vm.CheckString(1), "@")
	if len(parts) == 2 {
		vm.Push(lua.LString(parts[1]))
	} else {
		vm.Push(lua.LString(""))
	}
	return 1
}

type luaMetadata struct {
	Name        string
	Description string
}

// extractLuaMetadata reads @name and @description from the leading comment
// block of a script.
func extractLuaMetadata(scriptPath string) (*luaMetadata, error) {
	content, err := os.ReadFile(scriptPath)
	if err != nil {
		return nil, err
	}

	metadata := &luaMetadata{
		Name:        filepath.Base(scriptPath),
		Description: "Lua cleaning hook",
	}

	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "--") {
			break
		}

		comment := strings.TrimSpace(strings.TrimPrefix(line, "--"))
		switch {
		case strings.HasPrefix(comment, "@name"):
			metadata.Name = strings.TrimSpace(strings.TrimPrefix(comment, "@name"))
		case strings.HasPrefix(comment, "@description"):
			metadata.Description = strings.TrimSpace(strings.TrimPrefix(comment, "@description"))
		}
	}

	return metadata, nil
}
