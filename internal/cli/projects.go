package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"reelcut/internal/store"
	"reelcut/internal/timeline"
	"reelcut/internal/tui"
)

var projectsExportLimit int

func newProjectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Manage project snapshots in the project database",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List saved projects",
		RunE:  runProjectsList,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "save [name]",
		Short: "Save the current project, optionally under a new name",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runProjectsSave,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "load <name>",
		Short: "Replace project.json with a saved project",
		Args:  cobra.ExactArgs(1),
		RunE:  runProjectsLoad,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "rm <name>",
		Short: "Delete a saved project",
		Args:  cobra.ExactArgs(1),
		RunE:  runProjectsRm,
	})
	exports := &cobra.Command{
		Use:   "exports [name]",
		Short: "Show the export log (all projects when no name is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runProjectsExports,
	}
	exports.Flags().IntVar(&projectsExportLimit, "limit", 20, "Maximum entries to show")
	cmd.AddCommand(exports)
	return cmd
}

func runProjectsList(cmd *cobra.Command, _ []string) error {
	s, err := openSession(sessionOptions{Quiet: true})
	if err != nil {
		return err
	}
	defer s.Close()
	st, err := s.projects()
	if err != nil {
		return err
	}

	list, err := st.List(cmdContext(cmd))
	if err != nil {
		return err
	}
	if outputJSON {
		return writeJSON(cmd.OutOrStdout(), struct {
			Projects []store.ProjectSummary `json:"projects"`
		}{list})
	}
	if len(list) == 0 {
		cmd.Println("No saved projects.")
		return nil
	}

	current := s.engine.Name()
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "\tNAME\tCLIPS\tDURATION\tSAVED")
	for _, p := range list {
		marker := ""
		if p.Name == current {
			marker = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
			marker, tui.TruncateWithEllipsis(p.Name, 32), p.Clips,
			timeline.FormatTime(p.Duration), p.SavedAt.Local().Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

func runProjectsSave(cmd *cobra.Command, args []string) error {
	s, err := openSession(sessionOptions{Quiet: true})
	if err != nil {
		return err
	}
	defer s.Close()
	st, err := s.projects()
	if err != nil {
		return err
	}

	if len(args) == 1 {
		name := strings.TrimSpace(args[0])
		if name == "" {
			return fmt.Errorf("project name cannot be empty")
		}
		s.engine.SetName(name)
	}
	if err := st.Save(cmdContext(cmd), s.engine.Serialize()); err != nil {
		return err
	}
	if err := s.save(); err != nil {
		return err
	}
	cmd.Printf("Saved %s\n", s.engine.Name())
	return nil
}

func runProjectsLoad(cmd *cobra.Command, args []string) error {
	s, err := openSession(sessionOptions{Quiet: true})
	if err != nil {
		return err
	}
	defer s.Close()
	st, err := s.projects()
	if err != nil {
		return err
	}

	pf, err := st.Load(cmdContext(cmd), args[0])
	if err != nil {
		return err
	}
	if err := s.engine.Deserialize(pf); err != nil {
		return err
	}
	if err := s.save(); err != nil {
		return err
	}
	cmd.Printf("Loaded %s (%d clips) into %s\n", pf.Name, len(pf.Clips), s.pp.ProjectFile)
	return nil
}

func runProjectsRm(cmd *cobra.Command, args []string) error {
	s, err := openSession(sessionOptions{Quiet: true})
	if err != nil {
		return err
	}
	defer s.Close()
	st, err := s.projects()
	if err != nil {
		return err
	}
	if err := st.Delete(cmdContext(cmd), args[0]); err != nil {
		return err
	}
	cmd.Printf("Deleted %s\n", args[0])
	return nil
}

func runProjectsExports(cmd *cobra.Command, args []string) error {
	s, err := openSession(sessionOptions{Quiet: true})
	if err != nil {
		return err
	}
	defer s.Close()
	st, err := s.projects()
	if err != nil {
		return err
	}

	name := ""
	if len(args) == 1 {
		name = args[0]
	}
	records, err := st.Exports(cmdContext(cmd), name, projectsExportLimit)
	if err != nil {
		return err
	}
	if outputJSON {
		return writeJSON(cmd.OutOrStdout(), struct {
			Exports []store.ExportRecord `json:"exports"`
		}{records})
	}
	if len(records) == 0 {
		cmd.Println("No exports recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tPROJECT\tPROFILE\tSIZE\tFRAMES\tPATH")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s@%d\t%d\t%s\n",
			r.CreatedAt.Local().Format("2006-01-02 15:04"), r.Project, r.Profile,
			r.Resolution, r.FPS, r.Frames, tui.TruncateWithEllipsis(r.Path, 48))
	}
	return tw.Flush()
}
