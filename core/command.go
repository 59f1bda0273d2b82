package core

import (
	"errors"
	"sync"
)

// CommandHandler is a function that handles a command with raw frame data
// The handler is responsible for decoding its own arguments from the data pointer
type CommandHandler func(data *[]byte) error

// Command is a host-to-robot message with a fixed wire ID
type Command struct {
	ID      uint16
	Name    string
	Format  string // Argument description (e.g., "interval=%u")
	Handler CommandHandler
}

var (
	ErrUnknownCommand   = errors.New("unknown command")
	ErrDuplicateCommand = errors.New("duplicate command")
)

// CommandRegistry maps wire IDs to handlers
type CommandRegistry struct {
	mu       sync.RWMutex
	commands map[uint16]*Command
	nameToID map[string]uint16
}

// NewCommandRegistry creates a new command registry
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		commands: make(map[uint16]*Command),
		nameToID: make(map[string]uint16),
	}
}

// Register adds a command under a fixed ID. Both the ID and the name must be
// unused.
func (r *CommandRegistry) Register(id uint16, name string, format string, handler CommandHandler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.commands[id]; exists {
		return ErrDuplicateCommand
	}
	if _, exists := r.nameToID[name]; exists {
		return ErrDuplicateCommand
	}

	r.commands[id] = &Command{
		ID:      id,
		Name:    name,
		Format:  format,
		Handler: handler,
	}
	r.nameToID[name] = id
	return nil
}

// GetCommand retrieves a command by ID
func (r *CommandRegistry) GetCommand(id uint16) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[id]
	return cmd, ok
}

// GetCommandByName retrieves a command by name
func (r *CommandRegistry) GetCommandByName(name string) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.nameToID[name]
	if !ok {
		return nil, false
	}
	return r.commands[id], true
}

// Count returns the number of registered commands
func (r *CommandRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}

// Dispatch calls the appropriate command handler
func (r *CommandRegistry) Dispatch(cmdID uint16, data *[]byte) error {
	cmd, ok := r.GetCommand(cmdID)
	if !ok || cmd.Handler == nil {
		DebugPrintln("[CMD] unknown id " + itoa(int(cmdID)))
		return ErrUnknownCommand
	}
	return cmd.Handler(data)
}
