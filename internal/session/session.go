package session

import (
	"time"

	"github.com/ndavila/comprobantes-bot/internal/match"
	"github.com/ndavila/comprobantes-bot/internal/model"
)

// State identifies the step of the conversational flow a sender is in.
type State string

const (
	StateIdle                       State = "idle"
	StateAwaitingPayeeConfirm       State = "awaiting_payee_confirm"
	StateAwaitingPayeeRetry         State = "awaiting_payee_retry"
	StateAwaitingPayeeChoice        State = "awaiting_payee_choice"
	StateAwaitingNewPayeeName       State = "awaiting_new_payee_name"
	StateAwaitingMethodConfirm      State = "awaiting_method_confirm"
	StateAwaitingMethodChoice       State = "awaiting_method_choice"
	StateAwaitingNewMethodName      State = "awaiting_new_method_name"
	StateAwaitingSaveConfirm        State = "awaiting_save_confirm"
	StateAwaitingModificationChoice State = "awaiting_modification_choice"
)

// Data accumulates the fields of an in-progress comprobante, plus the
// transient values the disambiguation sub-flows need between turns.
type Data struct {
	RawText    string
	Extraction *model.Extraction
	PayeeMatch *match.Match
	Method     *model.PaymentMethod

	// Transient sub-flow fields.
	SearchTerm     string
	Candidates     []model.Payee
	Methods        []model.PaymentMethod
	PendingName    string
	WritingNewName bool
}

// Session is the per-sender dialogue state.
type Session struct {
	Sender         string
	State          State
	Data           Data
	CreatedAt      time.Time
	LastActivityAt time.Time
}

// Idle reports whether the session carries no in-progress flow.
func (s Session) Idle() bool {
	return s.State == StateIdle || s.State == ""
}
