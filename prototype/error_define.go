package prototype

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrNpe                = errors.New("Null Pointer")
	ErrPostNotFound       = errors.New("Post not found")
	ErrEditWindowClosed   = errors.New("Post cannot be updated after 7 days")
	ErrSignerUnavailable  = errors.New("signing provider is not available")
	ErrTransactionExpired = errors.New("transaction expired before inclusion")
)

// ErrorKind is the failure taxonomy shared by every mutation and read path.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindValidation
	KindAuthUnavailable
	KindInsufficientRC
	KindBroadcastFailure
	KindConfirmationTimeout
	KindReadFailure
	KindCancelled
)

var kindNames = map[ErrorKind]string{
	KindNone:                "none",
	KindValidation:          "validation",
	KindAuthUnavailable:     "auth_unavailable",
	KindInsufficientRC:      "insufficient_rc",
	KindBroadcastFailure:    "broadcast_failure",
	KindConfirmationTimeout: "confirmation_timeout",
	KindReadFailure:         "read_failure",
	KindCancelled:           "cancelled",
}

func (k ErrorKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ChainError is an error that already knows its kind.
type ChainError struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *ChainError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

func NewChainError(kind ErrorKind, code, message string) *ChainError {
	return &ChainError{Kind: kind, Code: code, Message: message}
}

// Coder is implemented by provider errors that carry a machine readable code.
type Coder interface {
	ErrorCode() string
}

// codeKinds maps structured provider codes onto the taxonomy.
var codeKinds = map[string]ErrorKind{
	"invalid_grant":          KindAuthUnavailable,
	"invalid_scope":          KindAuthUnavailable,
	"unauthorized_client":    KindAuthUnavailable,
	"unauthorized_access":    KindAuthUnavailable,
	"unauthorized":           KindAuthUnavailable,
	"not_enough_rc":          KindInsufficientRC,
	"rc_plugin_exception":    KindInsufficientRC,
	"user_cancel":            KindCancelled,
	"request_timeout":        KindBroadcastFailure,
	"invalid_request":        KindBroadcastFailure,
	"missing_authority":      KindAuthUnavailable,
	"insufficient_bandwidth": KindInsufficientRC,
}

// Substring fallbacks, checked in order. Only consulted when no structured code
// is available. These reflect observed node and signer messages and must be
// re-verified whenever the upstream API changes.
var messageKinds = []struct {
	needle string
	kind   ErrorKind
}{
	{"missing required posting authority", KindAuthUnavailable},
	{"missing required active authority", KindAuthUnavailable},
	{"missing authority", KindAuthUnavailable},
	{"not initialized", KindAuthUnavailable},
	{"not available", KindAuthUnavailable},
	{"rc mana", KindInsufficientRC},
	{"resource credit", KindInsufficientRC},
	{"insufficient", KindInsufficientRC},
	{"cancel", KindCancelled},
	{"rejected by user", KindCancelled},
	{"timeout", KindBroadcastFailure},
	{"timed out", KindBroadcastFailure},
}

// ClassifyError maps an error onto ErrorKind. Structured information wins; the
// message is inspected only as a last resort.
func ClassifyError(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var ce *ChainError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	var coder Coder
	if errors.As(err, &coder) {
		if kind, ok := codeKinds[strings.ToLower(coder.ErrorCode())]; ok {
			return kind
		}
	}
	msg := strings.ToLower(err.Error())
	for _, mk := range messageKinds {
		if strings.Contains(msg, mk.needle) {
			return mk.kind
		}
	}
	return KindBroadcastFailure
}
