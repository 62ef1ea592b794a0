// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package resource

import "strings"

// Kind categorizes a resource error.
type Kind int

// Error kinds
const (
	ProviderCollision Kind = iota + 1
	UnknownResource
	IdentityTaken
	AssetOpen
	AssetCorrupted
	TransitionFailed
)

func (k Kind) String() string {
	switch k {
	case ProviderCollision:
		return "provider collision"
	case UnknownResource:
		return "unknown resource"
	case IdentityTaken:
		return "identity taken"
	case AssetOpen:
		return "asset open failed"
	case AssetCorrupted:
		return "asset corrupted"
	case TransitionFailed:
		return "transition failed"
	default:
		return "unknown error"
	}
}

// Op names a lifecycle operation.
type Op string

// Lifecycle operations
const (
	OpBind      Op = "bind"
	OpPreload   Op = "preload"
	OpRealize   Op = "realize"
	OpUnrealize Op = "unrealize"
	OpUnload    Op = "unload"
)

// Error is the structured error returned by the manager and by
// resource implementations.
type Error struct {
	Kind     Kind
	Identity Identity
	Op       Op
	Detail   string
	Err      error
}

// Sentinels for errors.Is
var (
	ErrProviderCollision = &Error{Kind: ProviderCollision}
	ErrUnknownResource   = &Error{Kind: UnknownResource}
	ErrIdentityTaken     = &Error{Kind: IdentityTaken}
	ErrAssetOpen         = &Error{Kind: AssetOpen}
	ErrAssetCorrupted    = &Error{Kind: AssetCorrupted}
	ErrTransitionFailed  = &Error{Kind: TransitionFailed}
)

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("resource: ")
	b.WriteString(e.Kind.String())
	if e.Op != "" {
		b.WriteString(" in ")
		b.WriteString(string(e.Op))
	}
	if e.Identity != (Identity{}) {
		b.WriteString(" of ")
		b.WriteString(e.Identity.String())
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Kind only.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// AssetOpenError reports that the backing data at path could not be opened.
func AssetOpenError(path string, err error) error {
	return &Error{Kind: AssetOpen, Detail: path, Err: err}
}

// AssetCorruptedError reports that the backing data at path could not be parsed.
func AssetCorruptedError(path, detail string, err error) error {
	if detail != "" {
		path = path + ": " + detail
	}
	return &Error{Kind: AssetCorrupted, Detail: path, Err: err}
}
