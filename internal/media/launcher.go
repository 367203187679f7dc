package media

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/pders01/jobfeed/internal/config"
	"github.com/pders01/jobfeed/internal/debuglog"
)

// ErrNoLink is returned for jobs whose apply link is a placeholder.
var ErrNoLink = errors.New("job has no apply link")

// Launcher opens apply links in the browser, or in a document viewer for
// downloadable notices.
type Launcher struct {
	browser   []string
	pdfViewer []string
	detector  *Detector
	start     func(name string, args ...string) error
}

func NewLauncher(cfg config.OpenConfig) *Launcher {
	detector, err := NewDetector()
	if err != nil {
		debuglog.Warnf("loading opener table: %v", err)
		detector = &Detector{}
	}

	def := detector.DefaultOpener()
	defaultCmd := append([]string{def.Opener}, def.Args...)

	l := &Launcher{
		browser:   commandOrDefault(cfg.Browser, defaultCmd),
		pdfViewer: commandOrDefault(cfg.PDFViewer, nil),
		detector:  detector,
		start:     startDetached,
	}
	if l.pdfViewer == nil {
		l.pdfViewer = l.browser
	}
	return l
}

// Command returns the argv that Open would run for link.
func (l *Launcher) Command(link string) ([]string, error) {
	var argv []string
	switch l.detector.Classify(link) {
	case KindNone:
		return nil, ErrNoLink
	case KindDocument:
		argv = l.pdfViewer
	default:
		argv = l.browser
	}
	if len(argv) == 0 || argv[0] == "" {
		return nil, fmt.Errorf("no application found to open %s", link)
	}
	return append(append([]string(nil), argv...), strings.TrimSpace(link)), nil
}

func (l *Launcher) Open(link string) error {
	argv, err := l.Command(link)
	if err != nil {
		return err
	}
	debuglog.Debugf("opening %s with %s", link, argv[0])
	if err := l.start(argv[0], argv[1:]...); err != nil {
		return fmt.Errorf("failed to start %s: %w", argv[0], err)
	}
	return nil
}

func commandOrDefault(configured string, fallback []string) []string {
	if fields := strings.Fields(configured); len(fields) > 0 {
		return fields
	}
	return fallback
}

// startDetached starts a GUI application without waiting on it.
func startDetached(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}
