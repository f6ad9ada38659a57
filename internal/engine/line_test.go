package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const zipHash = "$zip2$*0*3*0*e3222d3b65b5a2785b192d31e39ff9de*1320*e*19648c3e063c82a9ad3ef08ed833*3135c79ecb86cd6f48fc*$/zip2$"

// A recorded status block and result from a real engine run.
var transcript = []struct {
	line string
	kind LineKind
	pw   string
}{
	{"hashcat (v6.2.6) starting", LineInformational, ""},
	{"* Device #1: pthread-haswell-Intel(R) Core(TM) i7, 7820/15704 MB (2048 MB allocatable), 8MCU", LineInformational, ""},
	{"Approaching final keyspace - workload adjusted.", LineInformational, ""},
	{"[s]tatus [p]ause [b]ypass [c]heckpoint [f]inish [q]uit =>", LineInformational, ""},
	{"Session..........: 4f9c_1", LineInformational, ""},
	{"Status...........: Running", LineInformational, ""},
	{"Hash.Mode........: 13600 (WinZip)", LineInformational, ""},
	{"Hash.Target......: " + zipHash, LineInformational, ""},
	{"Progress.........: 24576/14344384 (0.17%)", LineInformational, ""},
	{"Hardware.Mon.#1..: Util: 98%", LineInformational, ""},
	{"Status...........: Exhausted", LineInformational, ""},
	{"ERROR: cuInit(): forward compatibility was attempted on non supported HW", LineFatal, ""},
	{"Hashfile 'hash.txt' on line 1 ($zip2...): Token length exception", LineFatal, ""},
	{"No hashes loaded.", LineFatal, ""},
	{"Restore.Point....: 0/1 (0.00%) - FAILED?", LineFatal, ""},
	{zipHash + ":Summer2024!", LineSuccess, "Summer2024!"},
	{zipHash + ":pa:ss:word\r", LineSuccess, "pa:ss:word"},
	{"$rar5$16$aa$15$bb$8$cc:hunter2", LineSuccess, "hunter2"},
	{"$6$52450745$k5ka2p8bFuSmoVT1tzOyy:root", LineSuccess, "root"},
	{"$unknown$abc:notapassword", LineInformational, ""},
}

func TestClassifyLine_Transcript(t *testing.T) {
	for _, tt := range transcript {
		t.Run(tt.line, func(t *testing.T) {
			got := ClassifyLine(tt.line, zipHash)
			assert.Equal(t, tt.kind, got.Kind)
			assert.Equal(t, tt.pw, got.Password)
		})
	}
}

func TestClassifyLine_KnownHashWithoutPrefix(t *testing.T) {
	// the target hash wins even when it has no registered prefix
	got := ClassifyLine("deadbeef:secret", "deadbeef")
	assert.Equal(t, LineSuccess, got.Kind)
	assert.Equal(t, "secret", got.Password)

	got = ClassifyLine("deadbeef:secret", "")
	assert.Equal(t, LineInformational, got.Kind)
}

func TestParseProgress(t *testing.T) {
	p, ok := ParseProgress("Progress.........: 24576/14344384 (0.17%)")
	assert.True(t, ok)
	assert.InDelta(t, 0.17, p, 0.0001)

	_, ok = ParseProgress("Status...........: Running")
	assert.False(t, ok)
	assert.Equal(t, "success", LineSuccess.String())
	assert.Equal(t, "fatal", LineFatal.String())
}
