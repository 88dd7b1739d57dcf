package sim7070

import (
	"errors"
	"fmt"
	"strings"

	"github.com/LeoCommon/cellgw/internal/modem_manager/modem/at"
	"github.com/LeoCommon/cellgw/pkg/misc"
)

var (
	ErrHandshakeFailed      = errors.New("modem did not answer the handshake")
	ErrStageFailed          = errors.New("bring-up stage failed")
	ErrNotFullFunctionality = errors.New("modem not in full functionality")
	ErrNotRegistered        = errors.New("modem did not register on LTE-M / NB-IoT")
	ErrAPNNotSet            = errors.New("apn configuration rejected")
	ErrNoContext            = errors.New("no active pdp context")

	ErrEmptyCertificate       = errors.New("certificate is empty")
	ErrLengthMismatch         = errors.New("declared certificate length differs from its data")
	ErrUploadNoDownloadPrompt = errors.New("no DOWNLOAD prompt from modem")
	ErrUploadNotConfirmed     = errors.New("modem did not confirm the upload")
	ErrConvertFailed          = errors.New("certificate conversion failed")

	ErrSessionOpen      = errors.New("session already open")
	ErrSessionNotOpen   = errors.New("session not open")
	ErrOpenFailed       = errors.New("could not open connection")
	ErrSessionNotActive = errors.New("connection not active")
	ErrPromptTimeout    = errors.New("timeout waiting for '>' prompt")
	ErrSendFailed       = errors.New("modem did not accept the data")
	ErrNoData           = errors.New("no data received within timeout")
	ErrRequestFailed    = errors.New("http request failed")
)

// StageError reports a failed bring-up stage together with the last response seen
type StageError struct {
	Stage    Stage
	Attempts int
	Last     *at.Response
	Err      error
}

func (e *StageError) Error() string {
	msg := fmt.Sprintf("stage %s failed after %d attempt(s): %v", e.Stage, e.Attempts, e.Err)
	if e.Last != nil && len(e.Last.Lines) > 0 {
		msg += " [" + strings.Join(e.Last.Lines, " | ") + "]"
	}
	return msg
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func (e *StageError) Is(target error) bool {
	if target == ErrStageFailed {
		return true
	}
	_, ok := target.(*StageError)
	return ok
}

// promptTimeout matches both ErrPromptTimeout and misc.TimedOutError
func promptTimeout() error {
	return fmt.Errorf("%w: %w", ErrPromptTimeout, misc.NewTimedOutError("the data prompt", SendPromptTimeout))
}
