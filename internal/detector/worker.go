package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/ayusman/signlens/internal/imaging"
)

// WorkerDetector implements Detector using a Python ultralytics subprocess.
// Requests are serialised; the worker handles one frame at a time.
type WorkerDetector struct {
	config   Config
	script   string
	python   string
	cmd      *exec.Cmd
	stdin    io.WriteCloser
	stdout   *bufio.Reader
	mu       sync.Mutex
	started  bool
}

// errOutOfSync marks a reply line that is not a protocol message. The reply
// belonging to the request may still be buffered, so the worker must be restarted.
var errOutOfSync = errors.New("yolo worker out of sync")

// NewWorkerDetector creates a worker detector and starts the Python process.
// The call blocks until the worker reports that the model is loaded, so a
// missing or broken model surfaces here rather than on the first request.
func NewWorkerDetector(config Config) (*WorkerDetector, error) {
	if config.ModelPath == "" {
		return nil, errors.New("model path is not configured")
	}
	if _, err := os.Stat(config.ModelPath); err != nil {
		return nil, fmt.Errorf("model file: %w", err)
	}

	script := config.WorkerScript
	if script == "" {
		script = findWorkerScript()
	}
	if script == "" {
		return nil, fmt.Errorf("yolo_worker.py not found")
	}

	python := config.PythonPath
	if python == "" {
		python = findVenvPython()
	}
	if python == "" {
		python = "python3"
	}

	d := &WorkerDetector{
		config: config,
		script: script,
		python: python,
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ensureStarted(); err != nil {
		return nil, err
	}

	return d, nil
}

// Detect sends the image to the worker and returns the flattened boxes.
func (d *WorkerDetector) Detect(img *imaging.RGB, threshold float64) ([]Box, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureStarted(); err != nil {
		return nil, err
	}

	frame, err := encodeFrame(img)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}

	if err := writeRequest(d.stdin, threshold, frame); err != nil {
		d.reset()
		return nil, err
	}

	line, err := d.stdout.ReadBytes('\n')
	if err != nil {
		d.reset()
		return nil, fmt.Errorf("read response: %w", err)
	}

	boxes, err := parseResponse(line)
	if errors.Is(err, errOutOfSync) {
		d.config.logger().WithError(err).Warn("Restarting YOLO worker")
		d.reset()
	}
	return boxes, err
}

// Close shuts down the Python process.
func (d *WorkerDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown()
}

func (d *WorkerDetector) ensureStarted() error {
	if d.started {
		return nil
	}

	log := d.config.logger()

	d.cmd = exec.Command(d.python, d.script, d.config.ModelPath)

	stdin, err := d.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := d.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	// Worker logs go to our stderr
	d.cmd.Stderr = os.Stderr

	if err := d.cmd.Start(); err != nil {
		return fmt.Errorf("start yolo worker: %w", err)
	}

	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	d.started = true

	if err := d.awaitReady(); err != nil {
		if d.cmd.Process != nil {
			d.cmd.Process.Kill()
		}
		d.shutdown()
		return err
	}

	log.WithField("model", d.config.ModelPath).Info("YOLO worker ready")

	return nil
}

// awaitReady waits for the worker's handshake line.
func (d *WorkerDetector) awaitReady() error {
	type readResult struct {
		line []byte
		err  error
	}

	ch := make(chan readResult, 1)
	go func() {
		line, err := d.stdout.ReadBytes('\n')
		ch <- readResult{line: line, err: err}
	}()

	timeout := time.Duration(d.config.StartTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	select {
	case r := <-ch:
		if r.err != nil {
			return fmt.Errorf("yolo worker exited during startup: %w", r.err)
		}
		return parseReady(r.line)
	case <-time.After(timeout):
		return fmt.Errorf("yolo worker did not become ready within %s", timeout)
	}
}

// reset kills the worker so the next request starts a fresh one.
func (d *WorkerDetector) reset() {
	if d.started && d.cmd.Process != nil {
		d.cmd.Process.Kill()
	}
	d.shutdown()
}

func (d *WorkerDetector) shutdown() error {
	if !d.started {
		return nil
	}

	if d.stdin != nil {
		d.stdin.Close()
	}

	err := d.cmd.Wait()
	d.started = false
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil

	return err
}

// writeRequest frames one detection request:
// 4-byte big-endian payload length, 4-byte big-endian float32 threshold, payload.
func writeRequest(w io.Writer, threshold float64, frame []byte) error {
	header := make([]byte, 8)
	binary.BigEndian.PutUint32(header[0:4], uint32(len(frame)))
	binary.BigEndian.PutUint32(header[4:8], math.Float32bits(float32(threshold)))

	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// workerResponse is the JSON line the worker writes per request.
// Results mirrors the model's result groups; each group holds its boxes.
type workerResponse struct {
	Results []workerResult `json:"results"`
	Error   string         `json:"error,omitempty"`
}

type workerResult struct {
	Boxes []workerBox `json:"boxes"`
}

type workerBox struct {
	XYXY []float64 `json:"xyxy"`
	Cls  float64   `json:"cls"`
	Conf float64   `json:"conf"`
}

func parseResponse(line []byte) ([]Box, error) {
	var resp workerResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", errOutOfSync, err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("yolo worker: %s", resp.Error)
	}

	groups := make([][]Box, len(resp.Results))
	for i, r := range resp.Results {
		groups[i] = make([]Box, 0, len(r.Boxes))
		for _, b := range r.Boxes {
			if len(b.XYXY) != 4 {
				return nil, fmt.Errorf("yolo worker: box has %d coordinates, want 4", len(b.XYXY))
			}
			groups[i] = append(groups[i], Box{
				X1:      b.XYXY[0],
				Y1:      b.XYXY[1],
				X2:      b.XYXY[2],
				Y2:      b.XYXY[3],
				ClassID: int(b.Cls),
				Score:   b.Conf,
			})
		}
	}

	return Flatten(groups), nil
}

func parseReady(line []byte) error {
	var msg struct {
		Ready bool   `json:"ready"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(line, &msg); err != nil {
		return fmt.Errorf("parse worker handshake: %w", err)
	}
	if msg.Error != "" {
		return fmt.Errorf("load model: %s", msg.Error)
	}
	if !msg.Ready {
		return errors.New("yolo worker did not report ready")
	}
	return nil
}

func findWorkerScript() string {
	// Get executable directory
	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		"scripts/yolo_worker.py",
		"../scripts/yolo_worker.py",
		filepath.Join(execDir, "scripts/yolo_worker.py"),
		filepath.Join(os.Getenv("HOME"), ".signlens/scripts/yolo_worker.py"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

// findVenvPython looks for a Python interpreter in a virtual environment.
func findVenvPython() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".signlens/venv/bin/python"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}
