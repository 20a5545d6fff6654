// Package dispatch implements the OTP dispatch gateway: it turns an issued
// code into a delivery request and reports failures back to the caller so
// the issuing record can be rolled back.
package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/shandysiswandi/otpgate/internal/otp/usecase"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/messaging"
)

const (
	DriverBroker = "broker"
	DriverLog    = "log"
)

var ErrUnknownDriver = errors.New("dispatch: unknown driver")

type Gateway interface {
	Dispatch(ctx context.Context, req usecase.DispatchRequest) error
}

// New returns the gateway registered under driver.
func New(driver string, pub messaging.Publisher, ins instrument.Instrumentation, rc RetryConfig) (Gateway, error) {
	switch driver {
	case "", DriverBroker:
		if pub == nil {
			return nil, errors.New("dispatch: broker driver requires a publisher")
		}
		return NewBroker(pub, ins, rc), nil
	case DriverLog:
		return NewLog(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}
