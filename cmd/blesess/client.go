package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/srg/blesession/internal/config"
	"github.com/srg/blesession/session"
	"github.com/srg/blesession/transport"
	"github.com/srg/blesession/transport/goble"
)

// desktopGate grants radio access unconditionally. Desktop platforms report
// authorization loss through runtime faults rather than a queryable
// capability, so the proactive check always passes and revocation surfaces
// on the session's state stream.
var desktopGate = transport.GateFunc(func() bool { return true })

// newDriver builds the radio driver; a var so tests can install a fake.
var newDriver = func(logger *logrus.Logger, cfg *config.Config) transport.Driver {
	return goble.New(logger, &goble.Options{
		ConnectTimeout: cfg.ConnectTimeout.Duration,
		LegacyWrites:   cfg.LegacyWrites,
	})
}

// openSession loads configuration, builds the go-ble driver and wraps it in
// a session. Callers own the returned session and must Close it.
func openSession(cmd *cobra.Command, verboseFlagName string) (*session.Session, *config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	logger, err := configureLogger(cmd, verboseFlagName, cfg)
	if err != nil {
		return nil, nil, err
	}

	sess := session.New(newDriver(logger, cfg), desktopGate, logger)
	if !sess.CheckPermissions() {
		sess.Close()
		return nil, nil, errors.New("bluetooth access is not granted")
	}
	return sess, cfg, nil
}

// connectAndWait connects to address and blocks until the session reports
// ready, fails, or the timeout elapses.
func connectAndWait(sess *session.Session, address string, timeout time.Duration) error {
	states, cancel := sess.ConnectionState().Subscribe()
	defer cancel()

	sess.Connect(transport.Peer{ID: address})

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		select {
		case st := <-states:
			switch st.Phase {
			case session.PhaseConnected:
				if st.Ready {
					return nil
				}
			case session.PhaseError:
				return errors.New(st.Err)
			case session.PhaseDisconnected:
				return fmt.Errorf("connection to %s was dropped", address)
			}
		case <-deadline.C:
			return fmt.Errorf("%w within %s", ErrNotReady, timeout)
		}
	}
}

// awaitValue blocks until a characteristic value arrives on values, the
// session reports an error, or the timeout elapses. The states channel must
// already be drained of its current value by the caller.
func awaitValue(values <-chan []byte, states <-chan session.ConnectionState, timeout time.Duration) ([]byte, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		select {
		case data := <-values:
			return data, nil
		case st := <-states:
			if st.Phase == session.PhaseError {
				return nil, errors.New(st.Err)
			}
		case <-deadline.C:
			return nil, errors.New("timed out waiting for characteristic value")
		}
	}
}
