package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/srg/blesession/internal/siguuid"
	"github.com/srg/blesession/session"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for BLE devices",
	Long: `Scan for and display Bluetooth Low Energy devices in the vicinity.

Each device appears once, keyed by address; repeated sightings update the
existing entry in place, so the table always shows the latest signal
strength. Use --watch to redraw the table live as sightings arrive.`,
	RunE: runScan,
}

var (
	scanDuration time.Duration
	scanFormat   string
	scanWatch    bool
	scanVerbose  bool
)

func init() {
	scanCmd.Flags().DurationVarP(&scanDuration, "duration", "d", 0, "Scan duration (0 uses the configured default)")
	scanCmd.Flags().StringVarP(&scanFormat, "format", "f", "table", "Output format (table, json)")
	scanCmd.Flags().BoolVarP(&scanWatch, "watch", "w", false, "Continuously scan and update results")
	scanCmd.Flags().BoolVar(&scanVerbose, "verbose", false, "Enable debug logging")
}

func runScan(cmd *cobra.Command, args []string) error {
	if scanFormat != "table" && scanFormat != "json" {
		return fmt.Errorf("invalid format '%s': must be one of [table json]", scanFormat)
	}

	sess, cfg, err := openSession(cmd, "verbose")
	if err != nil {
		return err
	}
	defer sess.Close()

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	duration := cfg.ScanDuration.Duration
	if scanDuration > 0 {
		duration = scanDuration
	}

	// Listen for Ctrl+C to cancel
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	states, cancelStates := sess.ConnectionState().Subscribe()
	defer cancelStates()
	drainState(states)

	events := sess.ScanEvents()
	sess.StartScan()

	if scanWatch {
		return runWatchScan(sess, states, events, sigCh)
	}
	return runTimedScan(sess, states, sigCh, duration)
}

// runTimedScan collects sightings for the given duration, then prints one
// final table.
func runTimedScan(sess *session.Session, states <-chan session.ConnectionState, sigCh <-chan os.Signal, duration time.Duration) error {
	deadline := time.NewTimer(duration)
	defer deadline.Stop()

	for {
		select {
		case <-deadline.C:
			sess.StopScan()
			return displayResults(sess.ScanResults().Get())
		case <-sigCh:
			fmt.Println("\nCtrl+C pressed, cancelling scan...")
			sess.StopScan()
			return displayResults(sess.ScanResults().Get())
		case st := <-states:
			if st.Phase == session.PhaseError {
				sess.StopScan()
				return fmt.Errorf("scan failed: %s", st.Err)
			}
		}
	}
}

// runWatchScan redraws the result table as sightings arrive, until Ctrl+C.
func runWatchScan(sess *session.Session, states <-chan session.ConnectionState, events <-chan session.ScanEvent, sigCh <-chan os.Signal) error {
	// Redraws are coalesced onto a ticker so a chatty radio cannot starve
	// the terminal.
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	dirty := true
	for {
		select {
		case <-sigCh:
			fmt.Println("\nCtrl+C pressed, cancelling scan...")
			sess.StopScan()
			return displayResults(sess.ScanResults().Get())
		case st := <-states:
			if st.Phase == session.PhaseError {
				sess.StopScan()
				return fmt.Errorf("scan failed: %s", st.Err)
			}
		case ev := <-events:
			if ev.Type == session.ScanEventNew {
				// New peers are worth an immediate redraw
				dirty = true
			}
		case <-ticker.C:
			if dirty {
				clearScreen()
				if err := displayResults(sess.ScanResults().Get()); err != nil {
					return err
				}
			}
			dirty = true
		}
	}
}

// scanRow is the JSON projection of one scan result.
type scanRow struct {
	Address  string   `json:"address"`
	Name     string   `json:"name,omitempty"`
	RSSI     int      `json:"rssi"`
	Services []string `json:"services,omitempty"`
}

func displayResults(results []session.ScanResult) error {
	if scanFormat == "json" {
		return displayResultsJSON(results)
	}
	return displayResultsTable(results)
}

func displayResultsTable(results []session.ScanResult) error {
	if len(results) == 0 {
		fmt.Println("No devices discovered")
		return nil
	}

	bold := color.New(color.Bold)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	bold.Fprintln(w, "NAME\tADDRESS\tRSSI\tSERVICES")
	fmt.Fprintln(w, strings.Repeat("-", 72))

	for _, r := range results {
		name := r.Name
		if name == "" {
			name = "(unknown)"
		}
		if len(name) > 20 {
			name = name[:17] + "..."
		}

		var services string
		if r.Advertisement != nil {
			labels := make([]string, 0, len(r.Advertisement.Services()))
			for _, svc := range r.Advertisement.Services() {
				labels = append(labels, siguuid.Label(svc, siguuid.ServiceName))
			}
			services = strings.Join(labels, ",")
		}
		if len(services) > 30 {
			services = services[:27] + "..."
		}

		fmt.Fprintf(w, "%s\t%s\t%d dBm\t%s\n", name, r.ID, r.RSSI, services)
	}

	return w.Flush()
}

func displayResultsJSON(results []session.ScanResult) error {
	rows := make([]scanRow, 0, len(results))
	for _, r := range results {
		row := scanRow{Address: r.ID, Name: r.Name, RSSI: r.RSSI}
		if r.Advertisement != nil {
			row.Services = r.Advertisement.Services()
		}
		rows = append(rows, row)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(rows)
}

// drainState consumes the subscription's primed current value.
func drainState(states <-chan session.ConnectionState) {
	select {
	case <-states:
	default:
	}
}

func clearScreen() {
	var w io.Writer = os.Stdout
	fmt.Fprint(w, "\033[2J\033[H")
}
