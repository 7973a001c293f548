package detector

import (
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/signlens/internal/fixtures"
	"github.com/ayusman/signlens/internal/imaging"
)

// fakeWorkerPrelude speaks the worker protocol without a model: every reply
// carries one box whose class id is the frame length.
const fakeWorkerPrelude = `import json, os, struct, sys

MODEL = sys.argv[1]

def emit(obj):
    sys.stdout.write(json.dumps(obj) + "\n")
    sys.stdout.flush()

def next_frame():
    header = sys.stdin.buffer.read(8)
    if len(header) < 8:
        sys.exit(0)
    n, threshold = struct.unpack(">If", header)
    frame = sys.stdin.buffer.read(n)
    if len(frame) < n:
        sys.exit(0)
    return frame, threshold

def reply(frame, threshold):
    emit({"results": [{"boxes": [{"xyxy": [0, 0, 1, 1], "cls": len(frame), "conf": threshold}]}]})

def first_run():
    marker = MODEL + ".started"
    if os.path.exists(marker):
        return False
    open(marker, "w").close()
    return True

`

const echoWorker = `emit({"ready": True})
while True:
    reply(*next_frame())
`

const failingWorker = `emit({"error": "weights not found"})
sys.exit(1)
`

const slowWorker = `import time
time.sleep(30)
`

// crashingWorker exits on its first frame; a restarted worker behaves normally.
const crashingWorker = `crash = first_run()
emit({"ready": True})
while True:
    frame, threshold = next_frame()
    if crash:
        sys.exit(3)
    reply(frame, threshold)
`

// noisyWorker writes a log line ahead of its first reply.
const noisyWorker = `noisy = first_run()
emit({"ready": True})
while True:
    frame, threshold = next_frame()
    if noisy:
        print("WARNING imgsz adjusted")
        noisy = False
    reply(frame, threshold)
`

func fakeWorker(t *testing.T, script string) Config {
	t.Helper()

	python, err := exec.LookPath("python3")
	if err != nil {
		t.Skip("python3 not available")
	}

	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "worker.py")
	require.NoError(t, os.WriteFile(scriptPath, []byte(fakeWorkerPrelude+script), 0o644))
	modelPath := filepath.Join(dir, "best.pt")
	require.NoError(t, os.WriteFile(modelPath, []byte("weights"), 0o644))

	log, _ := test.NewNullLogger()
	cfg := DefaultConfig()
	cfg.ModelPath = modelPath
	cfg.PythonPath = python
	cfg.WorkerScript = scriptPath
	cfg.StartTimeoutSec = 10
	cfg.Logger = log
	return cfg
}

func gradient(w, h int) *imaging.RGB {
	return imaging.ToRGB(fixtures.Gradient(w, h))
}

// frameLen is the class id the fake worker answers with for img.
func frameLen(t *testing.T, img *imaging.RGB) int {
	t.Helper()
	frame, err := encodeFrame(img)
	require.NoError(t, err)
	return len(frame)
}

func TestWorkerDetector_Handshake(t *testing.T) {
	d, err := NewWorkerDetector(fakeWorker(t, echoWorker))
	require.NoError(t, err)
	defer d.Close()

	img := gradient(8, 6)
	boxes, err := d.Detect(img, 0.25)
	require.NoError(t, err)
	require.Len(t, boxes, 1)
	assert.Equal(t, frameLen(t, img), boxes[0].ClassID)
	assert.Equal(t, 0.25, boxes[0].Score)
}

func TestWorkerDetector_HandshakeError(t *testing.T) {
	d, err := NewWorkerDetector(fakeWorker(t, failingWorker))
	require.Error(t, err)
	assert.Nil(t, d)
	assert.Contains(t, err.Error(), "weights not found")
}

func TestWorkerDetector_ReadyTimeout(t *testing.T) {
	cfg := fakeWorker(t, slowWorker)
	cfg.StartTimeoutSec = 1

	d, err := NewWorkerDetector(cfg)
	require.Error(t, err)
	assert.Nil(t, d)
	assert.Contains(t, err.Error(), "did not become ready")
}

func TestWorkerDetector_RestartsAfterCrash(t *testing.T) {
	d, err := NewWorkerDetector(fakeWorker(t, crashingWorker))
	require.NoError(t, err)
	defer d.Close()

	_, err = d.Detect(gradient(8, 6), 0.5)
	require.Error(t, err)

	img := gradient(12, 9)
	boxes, err := d.Detect(img, 0.5)
	require.NoError(t, err)
	require.Len(t, boxes, 1)
	assert.Equal(t, frameLen(t, img), boxes[0].ClassID)
}

func TestWorkerDetector_ResyncsAfterStrayOutput(t *testing.T) {
	d, err := NewWorkerDetector(fakeWorker(t, noisyWorker))
	require.NoError(t, err)
	defer d.Close()

	first, second, third := gradient(8, 6), gradient(12, 9), gradient(16, 12)
	require.NotEqual(t, frameLen(t, first), frameLen(t, second))
	require.NotEqual(t, frameLen(t, second), frameLen(t, third))

	_, err = d.Detect(first, 0.5)
	require.ErrorIs(t, err, errOutOfSync)

	// Each later request gets the reply to its own frame.
	for _, img := range []*imaging.RGB{second, third} {
		boxes, err := d.Detect(img, 0.5)
		require.NoError(t, err)
		require.Len(t, boxes, 1)
		assert.Equal(t, frameLen(t, img), boxes[0].ClassID)
	}
}

func TestWorkerDetector_Concurrent(t *testing.T) {
	d, err := Open(fakeWorker(t, echoWorker))
	require.NoError(t, err)
	defer d.Close()

	var wg sync.WaitGroup
	for w := 4; w < 16; w++ {
		img := gradient(w, w+1)
		want := frameLen(t, img)

		wg.Add(1)
		go func() {
			defer wg.Done()
			boxes, err := d.Detect(img, 0.5)
			if assert.NoError(t, err) && assert.Len(t, boxes, 1) {
				assert.Equal(t, want, boxes[0].ClassID)
			}
		}()
	}
	wg.Wait()
}

func TestWorkerDetector_Close(t *testing.T) {
	d, err := NewWorkerDetector(fakeWorker(t, echoWorker))
	require.NoError(t, err)

	require.NoError(t, d.Close())
	assert.NoError(t, d.Close())
}
