package session_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/srg/blesession/internal/testutils"
	"github.com/srg/blesession/session"
)

type ScanSessionSuite struct {
	suite.Suite

	driver *testutils.FakeDriver
	gate   *testutils.FakeGate
	sess   *session.Session
}

func (s *ScanSessionSuite) SetupTest() {
	s.driver = testutils.NewFakeDriver()
	s.gate = testutils.NewFakeGate(true)
	s.sess = session.New(s.driver, s.gate, nil)
}

func (s *ScanSessionSuite) TearDownTest() {
	s.sess.Close()
}

// waitResults polls the result snapshot until pred matches.
func (s *ScanSessionSuite) waitResults(pred func([]session.ScanResult) bool) []session.ScanResult {
	s.Require().Eventually(func() bool {
		return pred(s.sess.ScanResults().Get())
	}, testutils.DefaultWait, 5*time.Millisecond)
	return s.sess.ScanResults().Get()
}

func (s *ScanSessionSuite) TestRepeatedSightingUpdatesInPlace() {
	s.sess.StartScan()

	s.driver.FireScanResult(testutils.Adv("AA:BB:CC:DD:EE:FF", -45))
	s.driver.FireScanResult(testutils.Adv("AA:BB:CC:DD:EE:FF", -40))

	results := s.waitResults(func(r []session.ScanResult) bool {
		return len(r) == 1 && r[0].RSSI == -40
	})
	s.Equal("AA:BB:CC:DD:EE:FF", results[0].ID)
}

func (s *ScanSessionSuite) TestDedupByIdentifier() {
	// The set size equals the number of distinct identifiers, regardless of
	// repeat count or order.
	s.sess.StartScan()

	ids := []string{"11:11", "22:22", "11:11", "33:33", "22:22", "11:11", "33:33"}
	for i, id := range ids {
		s.driver.FireScanResult(testutils.Adv(id, -50-i))
	}

	results := s.waitResults(func(r []session.ScanResult) bool {
		return len(r) == 3 && r[2].RSSI == -56
	})
	// First-sighting order is preserved.
	s.Equal("11:11", results[0].ID)
	s.Equal("22:22", results[1].ID)
	s.Equal("33:33", results[2].ID)
}

func (s *ScanSessionSuite) TestManySightingsFewPeers() {
	s.sess.StartScan()

	for i := 0; i < 100; i++ {
		s.driver.FireScanResult(testutils.Adv(fmt.Sprintf("00:0%d", i%4), -60))
	}

	s.waitResults(func(r []session.ScanResult) bool { return len(r) == 4 })
}

func (s *ScanSessionSuite) TestStartScanClearsPreviousResults() {
	s.sess.StartScan()
	s.driver.FireScanResult(testutils.Adv("11:11", -50))
	s.waitResults(func(r []session.ScanResult) bool { return len(r) == 1 })

	s.sess.StartScan()
	s.Empty(s.sess.ScanResults().Get())
	s.Equal(2, s.driver.CallCount("Scan"))
}

func (s *ScanSessionSuite) TestStartScanPermissionDenied() {
	s.gate.SetGranted(false)

	s.sess.StartScan()

	st := s.sess.ConnectionState().Get()
	s.Equal(session.PhaseError, st.Phase)
	s.Equal("Permission not granted", st.Err)
	s.Zero(s.driver.CallCount("Scan"))
}

func (s *ScanSessionSuite) TestScanFailurePreservesResults() {
	s.sess.StartScan()
	s.driver.FireScanResult(testutils.Adv("11:11", -50))
	s.waitResults(func(r []session.ScanResult) bool { return len(r) == 1 })

	s.driver.FireScanFailure(2)

	s.Require().Eventually(func() bool {
		return s.sess.ConnectionState().Get().Phase == session.PhaseError
	}, testutils.DefaultWait, 5*time.Millisecond)
	s.Equal("Scan failed: 2", s.sess.ConnectionState().Get().Err)
	s.Len(s.sess.ScanResults().Get(), 1)
}

func (s *ScanSessionSuite) TestStopScanForwardsHandle() {
	s.sess.StartScan()
	s.sess.StopScan()

	s.Equal(1, s.driver.CallCount("StopScan"))
}

func (s *ScanSessionSuite) TestStopScanWithoutPermissionIsSilent() {
	s.sess.StartScan()
	s.gate.SetGranted(false)

	s.sess.StopScan()

	s.Zero(s.driver.CallCount("StopScan"))
	// No spurious error either: stopping never fails loudly.
	s.NotEqual(session.PhaseError, s.sess.ConnectionState().Get().Phase)
}

func (s *ScanSessionSuite) TestStopScanWithoutStart() {
	s.sess.StopScan()
	s.Zero(s.driver.CallCount("StopScan"))
}

func (s *ScanSessionSuite) TestScanEventsMarkNewVersusUpdated() {
	events := s.sess.ScanEvents()
	s.sess.StartScan()

	s.driver.FireScanResult(testutils.Adv("11:11", -50))
	ev := testutils.RecvWithin(s.T(), events, testutils.DefaultWait)
	s.Equal(session.ScanEventNew, ev.Type)
	s.Equal("11:11", ev.Result.ID)

	s.driver.FireScanResult(testutils.Adv("11:11", -48))
	ev = testutils.RecvWithin(s.T(), events, testutils.DefaultWait)
	s.Equal(session.ScanEventUpdated, ev.Type)
	s.Equal(-48, ev.Result.RSSI)
}

func (s *ScanSessionSuite) TestResultsStreamPublishesSnapshots() {
	results, cancel := s.sess.ScanResults().Subscribe()
	defer cancel()
	s.Empty(testutils.RecvWithin(s.T(), results, testutils.DefaultWait))

	s.sess.StartScan()
	s.driver.FireScanResult(testutils.Adv("11:11", -50))

	got := testutils.WaitFor(s.T(), results, func(r []session.ScanResult) bool {
		return len(r) == 1
	}, testutils.DefaultWait)
	s.Equal("11:11", got[0].ID)
}

func TestScanSessionSuite(t *testing.T) {
	suite.Run(t, new(ScanSessionSuite))
}
