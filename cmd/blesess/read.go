package main

import (
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"

	"github.com/spf13/cobra"
)

// readCmd represents the read command
var readCmd = &cobra.Command{
	Use:   "read <address> <service-uuid> <characteristic-uuid>",
	Short: "Read a characteristic value from a BLE device",
	Long: `Connect to a BLE device, wait until it is ready for I/O, read the given
characteristic once and print the value.

UUIDs accept any common form: 16-bit short ("2a37"), full 128-bit, with or
without dashes.`,
	Args: cobra.ExactArgs(3),
	RunE: runRead,
}

var readVerbose bool

func init() {
	readCmd.Flags().BoolVar(&readVerbose, "verbose", false, "Enable debug logging")
}

func runRead(cmd *cobra.Command, args []string) error {
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
	// Discard the primed empty value so only the read's completion counts
	select {
	case <-values:
	default:
	}

	states, cancelStates := sess.ConnectionState().Subscribe()
	defer cancelStates()
	drainState(states)

	if !sess.ReadCharacteristic(serviceUUID, charUUID) {
		return fmt.Errorf("characteristic %s/%s could not be read", serviceUUID, charUUID)
	}

	data, err := awaitValue(values, states, cfg.ConnectTimeout.Duration)
	if err != nil {
		return err
	}

	printValue(data)
	return nil
}

// printValue shows a value as hex plus a printable-ASCII rendering.
func printValue(data []byte) {
	fmt.Printf("%d bytes\n", len(data))
	fmt.Printf("hex:   %s\n", hex.EncodeToString(data))
	fmt.Printf("ascii: %s\n", asciiPreview(data))
}

func asciiPreview(data []byte) string {
	var b strings.Builder
	for _, c := range data {
		if c < 128 && unicode.IsPrint(rune(c)) {
			b.WriteByte(c)
		} else {
			b.WriteByte('.')
		}
	}
	return b.String()
}
