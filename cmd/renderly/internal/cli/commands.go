package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-renderly"
)

func (a *app) writeJSON(value any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(value); err != nil {
		return err
	}
	_, err := a.stdout.Write(buf.Bytes())
	return err
}

func (a *app) renderCommand() *cobra.Command {
	var locale, out string
	cmd := &cobra.Command{
		Use:   "render <project-file>",
		Short: "Render a project file into an HTML document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := a.loadProject(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			doc, err := a.module.RenderProjectHTML(cmd.Context(), project, locale)
			if err != nil {
				return err
			}
			return a.writeOutput(out, doc)
		},
	}
	cmd.Flags().StringVar(&locale, "locale", "", "requested locale; unsupported codes fall back to the project default")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the document to a file instead of stdout")
	return cmd
}

func (a *app) previewCommand() *cobra.Command {
	var locale, out string
	cmd := &cobra.Command{
		Use:   "preview <project-file> <overrides-file>",
		Short: "Render a project with unsaved block and project overrides applied",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := a.loadProject(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			var overrides renderly.PreviewOverrides
			if err := readYAML(args[1], &overrides); err != nil {
				return err
			}
			doc, err := a.module.RenderPreviewHTML(project, overrides, locale)
			if err != nil {
				return err
			}
			return a.writeOutput(out, doc)
		},
	}
	cmd.Flags().StringVar(&locale, "locale", "", "requested locale")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the document to a file instead of stdout")
	return cmd
}

func (a *app) publishCommand() *cobra.Command {
	var locale, out string
	cmd := &cobra.Command{
		Use:   "publish <project-file>",
		Short: "Render a project, tag it with a version and print the publication record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := a.loadProject(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			publication, err := a.module.Publish(cmd.Context(), project, locale)
			if err != nil {
				return err
			}
			if out != "" {
				if err := a.writeOutput(out, publication.HTML); err != nil {
					return err
				}
			}
			record := *publication
			record.HTML = ""
			return a.writeJSON(record)
		},
	}
	cmd.Flags().StringVar(&locale, "locale", "", "requested locale")
	cmd.Flags().StringVarP(&out, "out", "o", "", "also write the document to this file")
	return cmd
}

func (a *app) snapshotCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot <project-file>",
		Short: "Print the canonical snapshot of a project file as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := a.loadProject(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			snap, err := a.module.SnapshotProject(project)
			if err != nil {
				return err
			}
			return a.writeJSON(snap)
		},
	}
}

func (a *app) importCommand() *cobra.Command {
	var out string
	var projectID int64
	cmd := &cobra.Command{
		Use:   "import <snapshot-file>",
		Short: "Turn an exported snapshot into a draft project file",
		Long: "Blocks whose definition is not in the catalog are dropped and empty " +
			"configs take the definition defaults. The result is a project file " +
			"the other commands accept.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := readSnapshot(args[0])
			if err != nil {
				return err
			}
			project, err := a.module.ImportSnapshot(cmd.Context(), snap)
			if err != nil {
				return err
			}
			project.ID = projectID
			return a.writeProjectFile(out, project)
		},
	}
	cmd.Flags().Int64Var(&projectID, "id", 0, "id given to the imported project")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the project file to a file instead of stdout")
	return cmd
}

func (a *app) diffCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "diff <before-file> <after-file>",
		Short: "Diff two project files the way revisions are diffed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			before, err := a.loadProject(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			after, err := a.loadProject(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			previous, err := a.module.SnapshotProject(before)
			if err != nil {
				return err
			}
			current, err := a.module.SnapshotProject(after)
			if err != nil {
				return err
			}
			return a.writeJSON(renderly.ComputeDiff(&previous, current))
		},
	}
}

func (a *app) catalogCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List the block definitions available to projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defs, err := a.module.Definitions(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tNAME\tCATEGORY\tVERSION\tTEMPLATE")
			for _, def := range defs {
				source := "built-in"
				if def.TemplateMarkup != "" {
					source = "custom"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", def.Key, def.Name, def.Category, def.Version, source)
			}
			return w.Flush()
		},
	}
}

func (a *app) revisionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revision",
		Short: "Manage project revisions in the configured storage",
	}

	var action string
	var userID int64
	record := &cobra.Command{
		Use:   "record <project-file>",
		Short: "Record a revision of a project file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := a.loadProject(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			var user *int64
			if cmd.Flags().Changed("user") {
				user = &userID
			}
			rev, err := a.module.RecordRevision(cmd.Context(), project, user, action)
			if err != nil {
				return err
			}
			return a.writeJSON(revisionSummary(rev))
		},
	}
	record.Flags().StringVar(&action, "action", "project.save", "action recorded with the revision")
	record.Flags().Int64Var(&userID, "user", 0, "id of the editing user")

	list := &cobra.Command{
		Use:   "list <project-id>",
		Short: "List revisions of a project, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("project id: %w", err)
			}
			history, err := a.module.ListRevisions(cmd.Context(), projectID)
			if err != nil {
				return err
			}
			summaries := make([]map[string]any, 0, len(history))
			for _, rev := range history {
				summaries = append(summaries, revisionSummary(rev))
			}
			return a.writeJSON(summaries)
		},
	}

	var restoreOut string
	var restoreUser int64
	restore := &cobra.Command{
		Use:   "restore <project-file> <revision-id>",
		Short: "Restore a project file to a stored revision and record the restore",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := a.loadProject(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			id, err := uuid.Parse(args[1])
			if err != nil {
				return fmt.Errorf("revision id: %w", err)
			}
			rev, err := a.module.GetRevision(cmd.Context(), id)
			if err != nil {
				return err
			}
			if rev.ProjectID != project.ID {
				return fmt.Errorf("revision %s belongs to project %d, not %d", rev.ID, rev.ProjectID, project.ID)
			}
			restored, err := a.module.RestoreRevision(cmd.Context(), project, rev)
			if err != nil {
				return err
			}
			var user *int64
			if cmd.Flags().Changed("user") {
				user = &restoreUser
			}
			recorded, err := a.module.RecordRevision(cmd.Context(), restored, user, renderly.ActionRestore)
			if err != nil {
				return err
			}
			if restoreOut != "" {
				if err := a.writeProjectFile(restoreOut, restored); err != nil {
					return err
				}
			}
			return a.writeJSON(revisionSummary(recorded))
		},
	}
	restore.Flags().Int64Var(&restoreUser, "user", 0, "id of the editing user")
	restore.Flags().StringVarP(&restoreOut, "out", "o", "", "write the restored project file here")

	cmd.AddCommand(record, list, restore)
	return cmd
}

func revisionSummary(rev *renderly.Revision) map[string]any {
	return map[string]any{
		"id":         rev.ID.String(),
		"project_id": rev.ProjectID,
		"sequence":   rev.Sequence,
		"action":     rev.Action,
		"created_at": rev.CreatedAt,
		"diff":       rev.Diff,
	}
}
