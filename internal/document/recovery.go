package document

import "errors"

// RecoveryState is the current position of the password recovery state machine
type RecoveryState int

const (
	// StateIdle means no document is blocked on a password
	StateIdle RecoveryState = iota
	// StateAwaitingPassword means a document is buffered and waiting for user input
	StateAwaitingPassword
	// StateAuthenticating means a password attempt is in flight
	StateAuthenticating
	// StateResolved means the last document authenticated successfully
	StateResolved
)

// String returns a human-readable name for the state
func (s RecoveryState) String() string {
	switch s {
	case StateAwaitingPassword:
		return "awaiting_password"
	case StateAuthenticating:
		return "authenticating"
	case StateResolved:
		return "resolved"
	default:
		return "idle"
	}
}

// PasswordSession is the transient state for one document blocked on a
// password: the original bytes are retained so the user is never asked to
// re-upload between attempts.
type PasswordSession struct {
	Data     []byte
	Filename string
	LastErr  string
	Attempts int
}

// RecoveryController drives password retry above the Rasterizer. At most one
// PasswordSession is live at a time; a new document submitted while a session
// is pending discards the stale session rather than merging with it. The
// controller itself is single-shot per call, matching the one-user
// interaction model - it is not safe for concurrent use.
type RecoveryController struct {
	rasterizer Rasterizer
	state      RecoveryState
	session    *PasswordSession
}

// NewRecoveryController creates a controller in the Idle state
func NewRecoveryController(rasterizer Rasterizer) *RecoveryController {
	return &RecoveryController{
		rasterizer: rasterizer,
		state:      StateIdle,
	}
}

// State returns the current machine state
func (c *RecoveryController) State() RecoveryState {
	return c.state
}

// Session returns the pending session, or nil outside AwaitingPassword
func (c *RecoveryController) Session() *PasswordSession {
	return c.session
}

// Submit runs a first rasterization attempt for a new document. A
// PasswordRequired outcome captures the bytes and filename into a fresh
// session and moves to AwaitingPassword; any pending session from a previous
// document is discarded first.
func (c *RecoveryController) Submit(doc RawDocument) ([]RasterPage, error) {
	c.reset()

	pages, err := c.rasterizer.Rasterize(doc.Data, "")
	if err != nil {
		if IsKind(err, PasswordRequired) {
			c.state = StateAwaitingPassword
			c.session = &PasswordSession{
				Data:     doc.Data,
				Filename: doc.Filename,
			}
		}
		return nil, err
	}

	c.state = StateResolved
	return pages, nil
}

// SubmitPassword retries the pending document with a caller-supplied
// password. On InvalidPassword the session's byte buffer is retained
// unchanged, the last error is recorded for display and the machine returns
// to AwaitingPassword; another attempt is permitted - no retry cap is
// enforced. On success the session is cleared.
func (c *RecoveryController) SubmitPassword(password string) ([]RasterPage, error) {
	// A plain error, not a pipeline kind: the call is out of order, no
	// document is at fault
	if c.state != StateAwaitingPassword || c.session == nil {
		return nil, errors.New("no document is awaiting a password")
	}
	if password == "" {
		return nil, newError(InvalidPassword, "password must not be empty", nil)
	}

	c.state = StateAuthenticating
	c.session.Attempts++

	pages, err := c.rasterizer.Rasterize(c.session.Data, password)
	if err != nil {
		if IsKind(err, InvalidPassword) || IsKind(err, PasswordRequired) {
			c.session.LastErr = err.Error()
			c.state = StateAwaitingPassword
			return nil, err
		}
		// Terminal failure, the buffered document is unusable
		c.reset()
		return nil, err
	}

	c.reset()
	c.state = StateResolved
	return pages, nil
}

// Cancel discards the pending session and its buffered bytes
func (c *RecoveryController) Cancel() {
	c.reset()
}

func (c *RecoveryController) reset() {
	c.state = StateIdle
	c.session = nil
}
