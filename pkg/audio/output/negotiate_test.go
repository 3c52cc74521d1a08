// ABOUTME: Tests for device and format negotiation
// ABOUTME: Covers ranking, candidate generation, fallback and error preservation
package output

import (
	"errors"
	"iter"
	"slices"
	"testing"
)

func TestRankRanges(t *testing.T) {
	ranges := []SupportedConfigRange{
		{Channels: 6, MinSampleRate: 44100, MaxSampleRate: 48000, Format: FormatF32},
		{Channels: 1, MinSampleRate: 44100, MaxSampleRate: 48000, Format: FormatF32},
		{Channels: 2, MinSampleRate: 8000, MaxSampleRate: 48000, Format: FormatU16},
		{Channels: 2, MinSampleRate: 48000, MaxSampleRate: 96000, Format: FormatF32},
		{Channels: 2, MinSampleRate: 8000, MaxSampleRate: 48000, Format: FormatF32},
		{Channels: 2, MinSampleRate: 8000, MaxSampleRate: 96000, Format: FormatF32},
		{Channels: 2, MinSampleRate: 8000, MaxSampleRate: 48000, Format: FormatI16},
		{Channels: 8, MinSampleRate: 44100, MaxSampleRate: 48000, Format: FormatF32},
	}

	RankRanges(ranges)

	expected := []SupportedConfigRange{
		{Channels: 2, MinSampleRate: 8000, MaxSampleRate: 96000, Format: FormatF32},
		{Channels: 2, MinSampleRate: 8000, MaxSampleRate: 48000, Format: FormatF32},
		{Channels: 2, MinSampleRate: 48000, MaxSampleRate: 96000, Format: FormatF32},
		{Channels: 2, MinSampleRate: 8000, MaxSampleRate: 48000, Format: FormatI16},
		{Channels: 2, MinSampleRate: 8000, MaxSampleRate: 48000, Format: FormatU16},
		{Channels: 1, MinSampleRate: 44100, MaxSampleRate: 48000, Format: FormatF32},
		{Channels: 8, MinSampleRate: 44100, MaxSampleRate: 48000, Format: FormatF32},
		{Channels: 6, MinSampleRate: 44100, MaxSampleRate: 48000, Format: FormatF32},
	}
	for i := range expected {
		if ranges[i] != expected[i] {
			t.Errorf("position %d: expected %v, got %v", i, expected[i], ranges[i])
		}
	}
}

func TestCandidateRates(t *testing.T) {
	tests := []struct {
		name     string
		min, max int
		expected []int
	}{
		{"contains 44.1k", 8000, 96000, []int{96000, 44100, 8000}},
		{"44.1k at min bound", 44100, 48000, []int{48000, 44100}},
		{"44.1k at max bound", 22050, 44100, []int{44100, 22050}},
		{"single rate", 48000, 48000, []int{48000}},
		{"above 44.1k", 48000, 192000, []int{192000, 48000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CandidateRates(SupportedConfigRange{Channels: 2, MinSampleRate: tt.min, MaxSampleRate: tt.max})
			if !slices.Equal(got, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func collectCandidates(dev Device) []Candidate {
	var out []Candidate
	for c := range Candidates(dev) {
		out = append(out, c)
	}
	return out
}

func TestCandidatesOrderAndDuplicates(t *testing.T) {
	dev := &fakeDevice{
		id:         "a",
		name:       "A",
		defaultCfg: stereoF32(48000),
		ranges: []SupportedConfigRange{
			{Channels: 2, MinSampleRate: 44100, MaxSampleRate: 48000, Format: FormatI16},
			{Channels: 2, MinSampleRate: 8000, MaxSampleRate: 48000, Format: FormatF32},
			{Channels: 2, MinSampleRate: 48000, MaxSampleRate: 48000, Format: FormatF32},
		},
	}

	var got []SupportedStreamConfig
	for _, c := range collectCandidates(dev) {
		if c.Err != nil {
			t.Fatalf("unexpected error candidate: %v", c.Err)
		}
		got = append(got, c.Config)
	}

	expected := []SupportedStreamConfig{
		stereoF32(48000),
		stereoF32(44100),
		stereoF32(8000),
		{Channels: 2, SampleRate: 48000, Format: FormatI16},
		{Channels: 2, SampleRate: 44100, Format: FormatI16},
	}
	if !slices.Equal(got, expected) {
		t.Errorf("expected %v, got %v", expected, got)
	}
}

func TestCandidatesQueryErrors(t *testing.T) {
	boom := errors.New("backend gone")
	dev := &fakeDevice{
		id:         "a",
		name:       "A",
		defaultErr: boom,
		ranges:     []SupportedConfigRange{{Channels: 2, MinSampleRate: 48000, MaxSampleRate: 48000, Format: FormatF32}},
	}

	got := collectCandidates(dev)
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	var defErr *DefaultStreamConfigError
	if !errors.As(got[0].Err, &defErr) || !errors.Is(got[0].Err, boom) {
		t.Errorf("expected default config error first, got %v", got[0].Err)
	}
	if got[1].Err != nil || got[1].Config != stereoF32(48000) {
		t.Errorf("expected range candidate second, got %+v", got[1])
	}

	dev.defaultErr = nil
	dev.defaultCfg = stereoF32(44100)
	dev.rangesErr = boom
	got = collectCandidates(dev)
	var listErr *SupportedStreamConfigsError
	if len(got) != 2 || !errors.As(got[1].Err, &listErr) {
		t.Errorf("expected supported configs error after default, got %+v", got)
	}
}

func TestCandidatesAreLazy(t *testing.T) {
	dev := &fakeDevice{id: "a", name: "A", defaultCfg: stereoF32(48000), rangesErr: errors.New("should not be queried")}

	for c := range Candidates(dev) {
		if c.Err != nil {
			t.Fatalf("ranges were queried before they were needed: %v", c.Err)
		}
		break
	}
}

func TestTryFromDeviceUsesDefaultConfig(t *testing.T) {
	dev := &fakeDevice{
		id:         "a",
		name:       "A",
		defaultCfg: stereoF32(48000),
		ranges:     []SupportedConfigRange{{Channels: 1, MinSampleRate: 8000, MaxSampleRate: 96000, Format: FormatI16}},
	}

	stream, _, err := TryFromDevice(dev)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer stream.Close()

	if stream.Config() != stereoF32(48000) {
		t.Errorf("expected default config, got %v", stream.Config())
	}
	if len(dev.attempts()) != 1 {
		t.Errorf("expected a single attempt, got %v", dev.attempts())
	}
}

func TestTryFromDeviceFallsBackToNextConfig(t *testing.T) {
	def := stereoF32(48000)
	dev := &fakeDevice{
		id:         "a",
		name:       "A",
		defaultCfg: def,
		ranges: []SupportedConfigRange{
			{Channels: 2, MinSampleRate: 44100, MaxSampleRate: 48000, Format: FormatI16},
			{Channels: 2, MinSampleRate: 8000, MaxSampleRate: 96000, Format: FormatF32},
		},
		accept: func(cfg SupportedStreamConfig) bool { return cfg != def },
	}

	stream, handle, err := TryFromDevice(dev)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer stream.Close()

	if stream.Config() != stereoF32(96000) {
		t.Errorf("expected second-ranked config, got %v", stream.Config())
	}
	if stream.Device() != "A" {
		t.Errorf("expected device A, got %s", stream.Device())
	}
	if err := handle.PlayRaw(constantSource(2, 96000, 10, 0.1)); err != nil {
		t.Errorf("play on negotiated stream: %v", err)
	}
}

func TestTryFromDeviceKeepsFirstError(t *testing.T) {
	boom := errors.New("default query failed")
	dev := &fakeDevice{
		id:         "a",
		name:       "A",
		defaultErr: boom,
		ranges:     []SupportedConfigRange{{Channels: 2, MinSampleRate: 8000, MaxSampleRate: 96000, Format: FormatF32}},
		accept:     rejectAll,
	}

	_, handle, err := TryFromDevice(dev)
	if !errors.Is(err, boom) {
		t.Fatalf("expected the default query error, got %v", err)
	}
	if len(dev.attempts()) != 3 {
		t.Errorf("expected every ranked config tried, got %v", dev.attempts())
	}
	if err := handle.PlayRaw(constantSource(2, 48000, 1, 0)); !errors.Is(err, ErrNoDevice) {
		t.Errorf("expected ErrNoDevice from failed negotiation handle, got %v", err)
	}
}

func TestTryFromDeviceBuildErrorDetails(t *testing.T) {
	dev := &fakeDevice{id: "a", name: "A", defaultCfg: stereoF32(48000), accept: rejectAll}

	_, _, err := TryFromDevice(dev)
	var buildErr *BuildStreamError
	if !errors.As(err, &buildErr) {
		t.Fatalf("expected BuildStreamError, got %v", err)
	}
	if buildErr.Device != "A" || buildErr.Config != stereoF32(48000) {
		t.Errorf("unexpected error details: %+v", buildErr)
	}
	if !errors.Is(err, errRejected) {
		t.Errorf("expected backend cause to unwrap, got %v", err)
	}
}

func TestTryFromDeviceNoConfigs(t *testing.T) {
	dev := &fakeDevice{id: "a", name: "A", defaultErr: errors.New("none"), ranges: nil}
	_, _, err := TryFromDevice(dev)
	var defErr *DefaultStreamConfigError
	if !errors.As(err, &defErr) {
		t.Errorf("expected default config error, got %v", err)
	}
}

func TestPlayFailureIsAFailedCandidate(t *testing.T) {
	startErr := errors.New("device busy")
	dev := &fakeDevice{
		id:         "a",
		name:       "A",
		defaultCfg: stereoF32(48000),
		playErr:    startErr,
	}

	_, _, err := TryFromDevice(dev)
	var playErr *PlayStreamError
	if !errors.As(err, &playErr) || !errors.Is(err, startErr) {
		t.Fatalf("expected PlayStreamError, got %v", err)
	}
	for i, s := range dev.streams {
		if s.closed != 1 {
			t.Errorf("stream %d not closed after start failure", i)
		}
	}
}

func TestTryDefaultFallsBackToOtherDevice(t *testing.T) {
	broken := &fakeDevice{
		id:         "broken",
		name:       "Broken",
		defaultCfg: stereoF32(48000),
		ranges:     []SupportedConfigRange{{Channels: 2, MinSampleRate: 8000, MaxSampleRate: 96000, Format: FormatF32}},
		accept:     rejectAll,
	}
	working := &fakeDevice{id: "working", name: "Working", defaultCfg: stereoF32(44100)}
	host := &fakeHost{devices: []*fakeDevice{working, broken}, defaultIdx: 1}

	stream, handle, err := TryDefault(host)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer stream.Close()

	if stream.Device() != "Working" {
		t.Errorf("expected second device, got %s", stream.Device())
	}
	if stream.Config() != stereoF32(44100) {
		t.Errorf("unexpected config %v", stream.Config())
	}
	if err := handle.PlayRaw(constantSource(2, 44100, 4, 0.2)); err != nil {
		t.Errorf("play: %v", err)
	}
}

func TestTryDefaultSkipsDefaultInDeviceList(t *testing.T) {
	only := &fakeDevice{id: "only", name: "Only", defaultCfg: stereoF32(48000), accept: rejectAll}
	host := &fakeHost{devices: []*fakeDevice{only}}

	_, _, err := TryDefault(host)
	if err == nil {
		t.Fatal("expected failure")
	}
	if got := len(only.attempts()); got != 1 {
		t.Errorf("default device negotiated %d times, expected once", got)
	}
}

func TestTryDefaultReturnsOriginalError(t *testing.T) {
	first := &fakeDevice{id: "1", name: "First", defaultCfg: stereoF32(48000), accept: rejectAll}
	second := &fakeDevice{id: "2", name: "Second", defaultErr: errors.New("second device broken")}
	host := &fakeHost{devices: []*fakeDevice{first, second}}

	_, _, err := TryDefault(host)
	var buildErr *BuildStreamError
	if !errors.As(err, &buildErr) {
		t.Fatalf("expected build error of the default device, got %v", err)
	}
	if buildErr.Device != "First" {
		t.Errorf("expected error from First, got %s", buildErr.Device)
	}
}

func TestTryDefaultWithoutDefaultDevice(t *testing.T) {
	working := &fakeDevice{id: "w", name: "Working", defaultCfg: stereoF32(48000)}
	host := &fakeHost{devices: []*fakeDevice{working}, defaultErr: ErrNoDevice}

	stream, _, err := TryDefault(host)
	if err != nil {
		t.Fatalf("expected fallback to listed device, got %v", err)
	}
	stream.Close()

	empty := &fakeHost{}
	if _, _, err := TryDefault(empty); !errors.Is(err, ErrNoDevice) {
		t.Errorf("expected ErrNoDevice for empty host, got %v", err)
	}
}

func TestAttemptObserver(t *testing.T) {
	def := stereoF32(48000)
	dev := &fakeDevice{
		id:         "a",
		name:       "A",
		defaultCfg: def,
		ranges:     []SupportedConfigRange{{Channels: 1, MinSampleRate: 22050, MaxSampleRate: 22050, Format: FormatI16}},
		accept:     func(cfg SupportedStreamConfig) bool { return cfg != def },
	}

	var attempts []Attempt
	stream, _, err := TryFromDevice(dev, WithAttemptObserver(func(a Attempt) {
		attempts = append(attempts, a)
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer stream.Close()

	if len(attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(attempts))
	}
	if attempts[0].Err == nil || attempts[1].Err != nil {
		t.Errorf("expected failure then success, got %+v", attempts)
	}
	if attempts[1].Config.Channels != 1 || attempts[1].Device != "A" {
		t.Errorf("unexpected successful attempt %+v", attempts[1])
	}
}

func TestErrorHandlerReceivesStreamErrors(t *testing.T) {
	dev := &fakeDevice{id: "a", name: "A", defaultCfg: stereoF32(48000)}

	var gotDevice string
	var gotErr error
	stream, _, err := TryFromDevice(dev, WithErrorHandler(func(device string, err error) {
		gotDevice, gotErr = device, err
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer stream.Close()

	boom := errors.New("xrun")
	dev.streams[0].onError(boom)
	if gotDevice != "A" || !errors.Is(gotErr, boom) {
		t.Errorf("handler got %q/%v", gotDevice, gotErr)
	}
}

func TestFirstSuccess(t *testing.T) {
	none := errors.New("nothing to try")
	seq := func(vals ...int) iter.Seq[int] {
		return func(yield func(int) bool) {
			for _, v := range vals {
				if !yield(v) {
					return
				}
			}
		}
	}

	var tried []int
	try := func(v int) (int, error) {
		tried = append(tried, v)
		if v%2 == 0 {
			return v * 10, nil
		}
		return 0, errors.New("odd")
	}

	got, err := firstSuccess(seq(1, 3, 4, 6), try, none)
	if err != nil || got != 40 {
		t.Errorf("expected 40, got %d (%v)", got, err)
	}
	if !slices.Equal(tried, []int{1, 3, 4}) {
		t.Errorf("expected short-circuit after success, tried %v", tried)
	}

	tried = nil
	_, err = firstSuccess(seq(1, 3), func(v int) (int, error) {
		return 0, errors.New([]string{"", "first", "", "second"}[v])
	}, none)
	if err == nil || err.Error() != "first" {
		t.Errorf("expected first error, got %v", err)
	}

	if _, err := firstSuccess(seq(), try, none); !errors.Is(err, none) {
		t.Errorf("expected none error, got %v", err)
	}
}
