package main

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// writeCmd represents the write command
var writeCmd = &cobra.Command{
	Use:   "write <address> <service-uuid> <characteristic-uuid> <data>",
	Short: "Write a value to a BLE characteristic",
	Long: `Connect to a BLE device, wait until it is ready for I/O and write the
given payload to a characteristic.

By default the payload is hex ("01ff", "0x01ff"); pass --ascii to send the
argument bytes verbatim. The write path (boolean or status-coded) is picked
automatically per the driver's capabilities; the result is reported the same
way either way.`,
	Args: cobra.ExactArgs(4),
	RunE: runWrite,
}

var (
	writeASCII   bool
	writeVerbose bool
)

func init() {
	writeCmd.Flags().BoolVar(&writeASCII, "ascii", false, "Treat data argument as ASCII text instead of hex")
	writeCmd.Flags().BoolVar(&writeVerbose, "verbose", false, "Enable debug logging")
}

func runWrite(cmd *cobra.Command, args []string) error {
	address, serviceUUID, charUUID, raw := args[0], args[1], args[2], args[3]

	payload, err := parsePayload(raw, writeASCII)
	if err != nil {
		return err
	}

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

	if !sess.WriteCharacteristic(serviceUUID, charUUID, payload) {
		// A fault would have surfaced on the state stream; report whichever
		// description is current.
		if st := sess.ConnectionState().Get(); st.Err != "" {
			return fmt.Errorf("write failed: %s", st.Err)
		}
		return fmt.Errorf("write to %s/%s was not accepted", serviceUUID, charUUID)
	}

	fmt.Printf("Wrote %d bytes to %s\n", len(payload), charUUID)
	return nil
}

func parsePayload(raw string, ascii bool) ([]byte, error) {
	if ascii {
		return []byte(raw), nil
	}
	cleaned := strings.TrimPrefix(strings.ToLower(raw), "0x")
	data, err := hex.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("invalid hex payload %q: %w (use --ascii for text)", raw, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty payload")
	}
	return data, nil
}
