package cli

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"reelcut/internal/clip"
	"reelcut/internal/logx"
	"reelcut/internal/media"
	"reelcut/internal/tui"
)

var (
	mediaPlace    bool
	mediaKind     string
	mediaWatchDir string
)

func newMediaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "media",
		Short: "Manage the project's media library",
	}
	cmd.AddCommand(newMediaAddCmd())
	cmd.AddCommand(newMediaListCmd())
	cmd.AddCommand(newMediaRmCmd())
	cmd.AddCommand(newMediaWatchCmd())
	return cmd
}

func newMediaAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <file|dir>...",
		Short: "Import images, videos and audio into the library",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runMediaAdd,
	}
	cmd.Flags().BoolVar(&mediaPlace, "place", false, "Also append each imported file to the end of its default track")
	return cmd
}

func newMediaListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List library assets",
		RunE:  runMediaList,
	}
	cmd.Flags().StringVar(&mediaKind, "type", "", "Filter by kind (image, video, audio)")
	return cmd
}

func newMediaRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>...",
		Short: "Remove assets from the library; clips using them render empty",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runMediaRm,
	}
}

func newMediaWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Import files as they appear in the media directory",
		RunE:  runMediaWatch,
	}
	cmd.Flags().StringVar(&mediaWatchDir, "dir", "", "Directory to watch (default: the project media dir)")
	return cmd
}

func runMediaAdd(cmd *cobra.Command, args []string) error {
	s, err := openSession(sessionOptions{Quiet: outputJSON})
	if err != nil {
		return err
	}
	defer s.Close()

	files, err := expandMediaArgs(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no supported media files in %v", args)
	}

	added, skipped, importErr := s.engine.ImportFiles(s.ingester(), files)

	var placed []clip.Clip
	if mediaPlace {
		for _, a := range added {
			track := clip.DefaultTrack(a.Kind)
			c, err := s.engine.AddMedia(a.ID, track, trackEnd(s.engine.Clips(), track))
			if err != nil {
				return fmt.Errorf("place %s: %w", a.Name, err)
			}
			placed = append(placed, c)
		}
	}

	if len(added) > 0 {
		if err := s.save(); err != nil {
			return err
		}
	}
	if importErr != nil {
		return importErr
	}

	if outputJSON {
		return writeJSON(cmd.OutOrStdout(), struct {
			Added   []media.Asset `json:"added"`
			Placed  []clip.Clip   `json:"placed,omitempty"`
			Skipped int           `json:"skipped"`
		}{added, placed, skipped})
	}
	for _, a := range added {
		cmd.Printf("added %s %s (%s)\n", a.Kind, a.Title(), a.ID)
	}
	if skipped > 0 {
		cmd.Printf("skipped %d already in library\n", skipped)
	}
	if len(placed) > 0 {
		cmd.Printf("placed %d clips\n", len(placed))
	}
	return nil
}

// expandMediaArgs walks directories for files with a known media extension.
// Plain file arguments are passed through so unsupported files fail loudly.
func expandMediaArgs(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", arg, err)
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		var found []string
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if _, ok := media.DetectKind(path); ok {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", arg, err)
		}
		sort.Strings(found)
		files = append(files, found...)
	}
	return files, nil
}

// trackEnd returns where the next clip on track should start.
func trackEnd(clips []clip.Clip, track clip.Track) float64 {
	end := 0.0
	for _, c := range clips {
		if c.Track == track && c.End() > end {
			end = c.End()
		}
	}
	return end
}

func runMediaList(cmd *cobra.Command, _ []string) error {
	s, err := openSession(sessionOptions{Quiet: true})
	if err != nil {
		return err
	}
	defer s.Close()

	var kind clip.Kind
	if mediaKind != "" {
		if kind, err = clip.ParseKind(mediaKind); err != nil {
			return err
		}
	}
	assets := s.engine.Media(kind)

	if outputJSON {
		return writeJSON(cmd.OutOrStdout(), struct {
			Media []media.Asset `json:"media"`
		}{assets})
	}
	if len(assets) == 0 {
		cmd.Println("Library is empty.")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tTITLE\tSIZE\tSOURCE")
	for _, a := range assets {
		size := "-"
		if a.Width > 0 && a.Height > 0 {
			size = fmt.Sprintf("%dx%d", a.Width, a.Height)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			a.ID, a.Kind,
			tui.TruncateWithEllipsis(a.Title(), 32),
			size,
			tui.TruncateWithEllipsis(a.SourceURI, 48),
		)
	}
	return tw.Flush()
}

func runMediaRm(cmd *cobra.Command, args []string) error {
	s, err := openSession(sessionOptions{Quiet: outputJSON})
	if err != nil {
		return err
	}
	defer s.Close()

	var removed []media.Asset
	var firstErr error
	for _, id := range args {
		a, err := s.engine.RemoveMedia(id)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		removed = append(removed, a)
	}
	if len(removed) > 0 {
		if err := s.save(); err != nil {
			return err
		}
	}
	if !outputJSON {
		for _, a := range removed {
			cmd.Printf("removed %s (%s)\n", a.Title(), a.ID)
		}
	} else if err := writeJSON(cmd.OutOrStdout(), struct {
		Removed []media.Asset `json:"removed"`
	}{removed}); err != nil {
		return err
	}
	return firstErr
}

func runMediaWatch(cmd *cobra.Command, _ []string) error {
	s, err := openSession(sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	dir := mediaWatchDir
	if dir == "" {
		dir = s.pp.MediaDir
	}

	ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd.Printf("Watching %s (ctrl+c to stop)\n", dir)
	return watchMedia(ctx, s, dir, func(a media.Asset) {
		cmd.Printf("added %s %s (%s)\n", a.Kind, a.Title(), a.ID)
	})
}

// watchMedia imports files created in dir and saves the project after each.
func watchMedia(ctx context.Context, s *session, dir string, onAdded func(media.Asset)) error {
	logger := logx.WithComponent(s.logger, "watch")
	return media.Watch(ctx, dir, s.ingester(), func(a media.Asset) {
		added, err := s.engine.ImportMedia(a)
		if err != nil {
			logger.Debug().Err(err).Str("path", a.SourceURI).Msg("skip watched file")
			return
		}
		if err := s.save(); err != nil {
			logger.Warn().Err(err).Msg("save after import")
		}
		if onAdded != nil {
			onAdded(added)
		}
	}, logger)
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
