package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/propdocs/internal/core/domain"
	"github.com/custodia-labs/propdocs/internal/core/ports/driving"
	"github.com/custodia-labs/propdocs/internal/logger"
)

var (
	watchDebounce time.Duration
	watchType     string
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Upload and index files dropped into an inbox directory",
	Long: `Watches an inbox directory laid out as <dir>/<owner-id>/<file>. Each new
or changed file is uploaded for the owner named by its parent directory and
processed. Files present before the watch starts are left alone.

Writes are debounced so a file is ingested once it stops changing.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 2*time.Second, "quiet period before a file is ingested")
	watchCmd.Flags().StringVarP(&watchType, "type", "t", "", "document type for ingested files (default Other)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	docType, err := domain.ParseDocumentType(watchType)
	if err != nil {
		return err
	}

	root, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolving %s: %w", args[0], err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("opening inbox: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", root)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watchInbox(watcher, root); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.SetTimestamps(true)
	stopScheduler := startScheduler(ctx)
	defer stopScheduler()

	in := newInbox(watchDebounce, func(path string) {
		ingestFile(ctx, cmd, documentService, root, path, docType)
	})
	defer in.stop()

	cmd.Printf("Watching %s (Ctrl+C to stop)\n", root)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			handleWatchEvent(watcher, in, root, event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch: %v", err)
		}
	}
}

// watchInbox watches root and each existing owner directory below it.
func watchInbox(watcher *fsnotify.Watcher, root string) error {
	if err := watcher.Add(root); err != nil {
		return fmt.Errorf("watching %s: %w", root, err)
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return fmt.Errorf("reading inbox: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() || isHidden(e.Name()) {
			continue
		}
		dir := filepath.Join(root, e.Name())
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
	}
	return nil
}

func handleWatchEvent(watcher *fsnotify.Watcher, in *inbox, root string, event fsnotify.Event) {
	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		in.cancel(event.Name)
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		if filepath.Dir(event.Name) == root {
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !isHidden(info.Name()) {
				if err := watcher.Add(event.Name); err != nil {
					logger.Warn("watch: adding %s: %v", event.Name, err)
				}
			}
			return
		}
		if _, ok := inboxTarget(root, event.Name); ok {
			in.schedule(event.Name)
		}
	}
}

// inboxTarget returns the owner ID for a file at <root>/<owner>/<file>.
func inboxTarget(root, path string) (string, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 2 || parts[0] == ".." {
		return "", false
	}
	owner, name := parts[0], parts[1]
	if owner == "" || name == "" || isHidden(owner) || isHidden(name) {
		return "", false
	}
	return owner, true
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~")
}

var watchOutput sync.Mutex

// ingestFile uploads and processes one inbox file.
func ingestFile(
	ctx context.Context,
	cmd *cobra.Command,
	docs driving.DocumentService,
	root, path string,
	docType domain.DocumentType,
) {
	ownerID, ok := inboxTarget(root, path)
	if !ok {
		return
	}

	report := func(format string, args ...any) {
		watchOutput.Lock()
		defer watchOutput.Unlock()
		cmd.Printf(format, args...)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			report("%s: read failed: %v\n", path, err)
		}
		return
	}
	if len(content) == 0 {
		return
	}

	doc, err := docs.Upload(ctx, driving.UploadRequest{
		OwnerID:  ownerID,
		Filename: filepath.Base(path),
		Type:     docType,
		Content:  content,
	})
	if err != nil {
		report("%s: upload failed: %v\n", path, err)
		return
	}

	result, err := docs.Process(ctx, doc.ID)
	if err != nil {
		report("%s: uploaded as %s, processing failed: %v\n", path, doc.ID, err)
		return
	}
	if result.Error != "" {
		report("%s: uploaded as %s, processing failed: %s\n", path, doc.ID, result.Error)
		return
	}
	report("%s: %s indexed for %s (%d chunks)\n", filepath.Base(path), doc.ID, ownerID, result.Indexed)
}

// inbox debounces file events per path.
type inbox struct {
	debounce time.Duration
	ingest   func(path string)

	mu     sync.Mutex
	timers map[string]*time.Timer
	wg     sync.WaitGroup
}

func newInbox(debounce time.Duration, ingest func(path string)) *inbox {
	return &inbox{
		debounce: debounce,
		ingest:   ingest,
		timers:   make(map[string]*time.Timer),
	}
}

// schedule (re)starts the quiet period for path.
func (in *inbox) schedule(path string) {
	in.mu.Lock()
	defer in.mu.Unlock()

	if t, ok := in.timers[path]; ok {
		if t.Stop() {
			in.wg.Done()
		}
	}
	in.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(in.debounce, func() {
		defer in.wg.Done()
		in.mu.Lock()
		if in.timers[path] == t {
			delete(in.timers, path)
		}
		in.mu.Unlock()
		in.ingest(path)
	})
	in.timers[path] = t
}

func (in *inbox) cancel(path string) {
	in.mu.Lock()
	defer in.mu.Unlock()

	if t, ok := in.timers[path]; ok {
		if t.Stop() {
			in.wg.Done()
		}
		delete(in.timers, path)
	}
}

func (in *inbox) pending() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.timers)
}

// stop cancels pending files and waits for running ingests.
func (in *inbox) stop() {
	in.mu.Lock()
	for path, t := range in.timers {
		if t.Stop() {
			in.wg.Done()
		}
		delete(in.timers, path)
	}
	in.mu.Unlock()
	in.wg.Wait()
}
