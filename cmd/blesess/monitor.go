package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/srg/blesession/internal/siguuid"
	"github.com/srg/blesession/session"
)

// monitorCmd represents the monitor command
var monitorCmd = &cobra.Command{
	Use:   "monitor <address> <service-uuid> <characteristic-uuid>",
	Short: "Stream characteristic notifications from a BLE device",
	Long: `Connect to a BLE device, enable notifications for a characteristic and
print each received value until interrupted.

Enabling notifications subscribes locally and writes the standard enable
payload to the characteristic's configuration descriptor.`,
	Args: cobra.ExactArgs(3),
	RunE: runMonitor,
}

var monitorVerbose bool

func init() {
	monitorCmd.Flags().BoolVar(&monitorVerbose, "verbose", false, "Enable debug logging")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	address, serviceUUID, charUUID := args[0], args[1], args[2]

	sess, cfg, err := openSession(cmd, "verbose")
	if err != nil {
		return err
	}
	defer sess.Close()

	cmd.SilenceUsage = true

	if err := connectAndWait(sess, address, cfg.ConnectTimeout.Duration); err != nil {
		return err
	}
	defer sess.Disconnect()

	values, cancelValues := sess.Received().Subscribe()
	defer cancelValues()
	select {
	case <-values:
	default:
	}

	states, cancelStates := sess.ConnectionState().Subscribe()
	defer cancelStates()
	drainState(states)

	if !sess.EnableNotification(serviceUUID, charUUID) {
		if st := sess.ConnectionState().Get(); st.Err != "" {
			return fmt.Errorf("enabling notifications failed: %s", st.Err)
		}
		return fmt.Errorf("notifications could not be enabled for %s/%s", serviceUUID, charUUID)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	heading := color.New(color.FgCyan)
	heading.Printf("Monitoring %s on %s (Ctrl+C to stop)\n",
		siguuid.Label(charUUID, siguuid.CharacteristicName), address)

	count := 0
	for {
		select {
		case data := <-values:
			count++
			fmt.Printf("[%s] %4d  %s  %s\n",
				time.Now().Format("15:04:05.000"), count,
				hex.EncodeToString(data), asciiPreview(data))
		case st := <-states:
			switch st.Phase {
			case session.PhaseError:
				return fmt.Errorf("monitoring stopped: %s", st.Err)
			case session.PhaseDisconnected:
				fmt.Println("Device disconnected")
				return nil
			}
		case <-sigCh:
			fmt.Printf("\nStopped after %d notifications\n", count)
			return nil
		}
	}
}
