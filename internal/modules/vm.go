package modules

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/sirupsen/logrus"

	"github.com/calebhart/chrono-arcade/internal/eventbus"
	"github.com/calebhart/chrono-arcade/internal/game"
	"github.com/calebhart/chrono-arcade/internal/levels"
)

const (
	moduleExecTimeout = 2 * time.Second
	moduleCallTimeout = 1 * time.Second
)

// RegisterFunc receives the registrations a module performs while executing.
type RegisterFunc func(id string, factory game.Factory)

// VM wraps a goja runtime that executes one fetched game module. The module
// registers its game logic by calling the injected registerGame global;
// every registration is also announced on the Registered channel so the
// loader can wake up without polling.
type VM struct {
	runtime *goja.Runtime
	mu      sync.Mutex

	register   RegisterFunc
	bus        *eventbus.Bus
	registered chan string
	closed     bool
}

// NewVM creates a sandboxed runtime with the shell globals injected.
func NewVM(bus *eventbus.Bus, register RegisterFunc) *VM {
	vm := &VM{
		runtime:    goja.New(),
		register:   register,
		bus:        bus,
		registered: make(chan string, 8),
	}
	vm.injectGlobals()
	return vm
}

// Registered announces the identifier of every game the module registers.
func (vm *VM) Registered() <-chan string {
	return vm.registered
}

// injectGlobals registers registerGame, emit, log, and console.log, and
// blocks runtime escape hatches.
func (vm *VM) injectGlobals() {
	vm.runtime.Set("registerGame", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 2 {
			panic(vm.runtime.NewTypeError("registerGame(id, definition) requires two arguments"))
		}
		id := call.Arguments[0].String()
		def := call.Arguments[1]

		factory := vm.factoryFromValue(id, def)
		if factory == nil {
			panic(vm.runtime.NewTypeError("registerGame: definition must be an object or a function"))
		}

		vm.register(id, factory)
		select {
		case vm.registered <- id:
		default:
		}
		return goja.Undefined()
	})

	vm.runtime.Set("emit", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) == 0 {
			return goja.Undefined()
		}
		kind := eventbus.Kind(call.Arguments[0].String())
		var payload any
		if len(call.Arguments) > 1 {
			payload = call.Arguments[1].Export()
		}
		vm.bus.Publish(kind, payload)
		return goja.Undefined()
	})

	vm.runtime.Set("log", func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		logrus.WithField("source", "module").Info(strings.Join(parts, " "))
		return goja.Undefined()
	})

	console := vm.runtime.NewObject()
	console.Set("log", vm.runtime.Get("log"))
	vm.runtime.Set("console", console)

	// Block dangerous globals.
	vm.runtime.Set("require", goja.Undefined())
	vm.runtime.Set("fetch", goja.Undefined())
	vm.runtime.Set("XMLHttpRequest", goja.Undefined())
	vm.runtime.Set("eval", goja.Undefined())
	vm.runtime.Set("Function", goja.Undefined())
}

// Execute runs the fetched module source. Registration side effects happen
// here or, for modules that defer it, before the loader's grace period ends.
func (vm *VM) Execute(source string) error {
	return vm.runWithTimeout(moduleExecTimeout, func() error {
		vm.mu.Lock()
		defer vm.mu.Unlock()
		_, err := vm.runtime.RunString(source)
		if err != nil {
			return fmt.Errorf("modules: execute: %w", err)
		}
		return nil
	})
}

// Close interrupts the runtime. The VM must not be used afterwards.
func (vm *VM) Close() {
	vm.mu.Lock()
	if vm.closed {
		vm.mu.Unlock()
		return
	}
	vm.closed = true
	vm.mu.Unlock()
	vm.runtime.Interrupt("module unloaded")
}

// factoryFromValue turns a registerGame argument into a game.Factory. A
// function definition is treated as the factory itself and is called with
// the level config at instantiation time; an object definition is used as
// the instance's lifecycle table directly.
func (vm *VM) factoryFromValue(id string, def goja.Value) game.Factory {
	if callable, ok := goja.AssertFunction(def); ok {
		return func(cfg levels.Config) game.Instance {
			return &scriptGame{vm: vm, id: id, create: callable}
		}
	}
	if obj := def.ToObject(vm.runtime); obj != nil {
		return func(cfg levels.Config) game.Instance {
			return &scriptGame{vm: vm, id: id, table: obj}
		}
	}
	return nil
}

func (vm *VM) runWithTimeout(timeout time.Duration, fn func() error) error {
	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		// Interrupt a runaway module.
		vm.runtime.Interrupt("module execution timeout")
		select {
		case err := <-done:
			if err != nil {
				return fmt.Errorf("modules: timed out: %w", err)
			}
			return fmt.Errorf("modules: timed out")
		case <-time.After(200 * time.Millisecond):
			return fmt.Errorf("modules: timed out")
		}
	}
}
