package main

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/diagnostic-versions/internal/lifecycle"
	"github.com/sells-group/diagnostic-versions/internal/model"
)

var (
	versionID     int64
	versionActor  int64
	versionDiagID int64
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Manage diagnostic versions",
}

var (
	createName        string
	createDescription string
	createPrompt      string
	createNote        string
)

var versionCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an empty draft version",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := requireActor(); err != nil {
			return err
		}
		svc, err := openServices(cmd.Context(), "cli")
		if err != nil {
			return err
		}
		defer svc.Close()

		v, err := svc.versions.Create(cmd.Context(), lifecycle.CreateInput{
			DiagnosticID: versionDiagID,
			Name:         createName,
			Description:  flagString(cmd, "description", createDescription),
			SystemPrompt: flagString(cmd, "prompt", createPrompt),
			Note:         flagString(cmd, "note", createNote),
		}, versionActor)
		if err != nil {
			return err
		}
		return writeYAML(cmd.OutOrStdout(), v)
	},
}

var importFile string

var versionImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Replace a draft's structure from an xlsx workbook",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := requireActor(); err != nil {
			return err
		}
		content, err := os.ReadFile(importFile)
		if err != nil {
			return eris.Wrapf(err, "read %s", importFile)
		}
		svc, err := openServices(cmd.Context(), "cli")
		if err != nil {
			return err
		}
		defer svc.Close()

		sum, err := svc.importer.ImportContent(cmd.Context(), versionID, versionActor, content)
		if err != nil {
			return err
		}
		return writeYAML(cmd.OutOrStdout(), sum)
	},
}

var versionFinalizeCmd = &cobra.Command{
	Use:   "finalize",
	Short: "Freeze a draft and record its source hash",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := requireActor(); err != nil {
			return err
		}
		svc, err := openServices(cmd.Context(), "cli")
		if err != nil {
			return err
		}
		defer svc.Close()

		res, err := svc.versions.Finalize(cmd.Context(), versionID, versionActor)
		if err != nil {
			return err
		}
		return writeYAML(cmd.OutOrStdout(), res)
	},
}

var versionActivateCmd = &cobra.Command{
	Use:   "activate",
	Short: "Make a finalized version the active one for its diagnostic",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := requireActor(); err != nil {
			return err
		}
		svc, err := openServices(cmd.Context(), "cli")
		if err != nil {
			return err
		}
		defer svc.Close()

		res, err := svc.versions.Activate(cmd.Context(), versionID, versionActor, versionDiagID)
		if err != nil {
			return err
		}
		return writeYAML(cmd.OutOrStdout(), res)
	},
}

var showAudit bool

// versionView is the `version show` document.
type versionView struct {
	lifecycle.VersionDetail `yaml:",inline"`
	AuditTrail              []auditLine `yaml:"audit_trail,omitempty"`
}

type auditLine struct {
	At        string  `yaml:"at"`
	Action    string  `yaml:"action"`
	ActorID   int64   `yaml:"actor_id"`
	FieldName *string `yaml:"field_name,omitempty"`
	NewValue  any     `yaml:"new_value,omitempty"`
	Note      *string `yaml:"note,omitempty"`
}

var versionShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print a version's detail as YAML",
	RunE: func(cmd *cobra.Command, _ []string) error {
		svc, err := openServices(cmd.Context(), "cli")
		if err != nil {
			return err
		}
		defer svc.Close()

		d, err := svc.versions.Detail(cmd.Context(), versionID)
		if err != nil {
			return err
		}
		view := versionView{VersionDetail: *d}
		if showAudit {
			entries, err := svc.versions.AuditTrail(cmd.Context(), versionID)
			if err != nil {
				return err
			}
			view.AuditTrail = auditLines(entries)
		}
		return writeYAML(cmd.OutOrStdout(), view)
	},
}

var templateOut string

var versionTemplateCmd = &cobra.Command{
	Use:   "template",
	Short: "Export a structure workbook",
	RunE: func(cmd *cobra.Command, _ []string) error {
		svc, err := openServices(cmd.Context(), "cli")
		if err != nil {
			return err
		}
		defer svc.Close()

		f, err := svc.versions.Template(cmd.Context(), versionID, versionDiagID)
		if err != nil {
			return err
		}
		path := filepath.Join(templateOut, f.Filename)
		if err := os.WriteFile(path, f.Content, 0o644); err != nil {
			return eris.Wrapf(err, "write %s", path)
		}
		_, err = io.WriteString(cmd.OutOrStdout(), path+"\n")
		return err
	},
}

func requireActor() error {
	if versionActor <= 0 {
		return eris.New("--actor must be a positive admin id")
	}
	return nil
}

// flagString is nil unless the flag was given.
func flagString(cmd *cobra.Command, name, value string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &value
}

func auditLines(entries []model.AuditEntry) []auditLine {
	out := make([]auditLine, len(entries))
	for i, e := range entries {
		out[i] = auditLine{
			At:        e.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
			Action:    string(e.Action),
			ActorID:   e.ActorID,
			FieldName: e.FieldName,
			NewValue:  e.NewValue,
			Note:      e.Note,
		}
	}
	return out
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return eris.Wrap(err, "encode yaml")
	}
	return enc.Close()
}

func init() {
	idFlag := func(c *cobra.Command) {
		c.Flags().Int64Var(&versionID, "id", 0, "version id")
		_ = c.MarkFlagRequired("id")
	}
	actorFlag := func(c *cobra.Command) {
		c.Flags().Int64Var(&versionActor, "actor", 0, "admin id recorded as the actor (required)")
	}

	versionCreateCmd.Flags().Int64Var(&versionDiagID, "diagnostic-id", 0, "diagnostic id (required)")
	versionCreateCmd.Flags().StringVar(&createName, "name", "", "version name (required)")
	versionCreateCmd.Flags().StringVar(&createDescription, "description", "", "description")
	versionCreateCmd.Flags().StringVar(&createPrompt, "prompt", "", "system prompt")
	versionCreateCmd.Flags().StringVar(&createNote, "note", "", "note")
	_ = versionCreateCmd.MarkFlagRequired("diagnostic-id")
	_ = versionCreateCmd.MarkFlagRequired("name")
	actorFlag(versionCreateCmd)

	idFlag(versionImportCmd)
	actorFlag(versionImportCmd)
	versionImportCmd.Flags().StringVar(&importFile, "file", "", "path to the xlsx workbook (required)")
	_ = versionImportCmd.MarkFlagRequired("file")

	idFlag(versionFinalizeCmd)
	actorFlag(versionFinalizeCmd)

	idFlag(versionActivateCmd)
	actorFlag(versionActivateCmd)
	versionActivateCmd.Flags().Int64Var(&versionDiagID, "diagnostic-id", 0, "expected diagnostic id (optional)")

	idFlag(versionShowCmd)
	versionShowCmd.Flags().BoolVar(&showAudit, "audit", false, "include the audit trail")

	versionTemplateCmd.Flags().Int64Var(&versionID, "id", 0, "version id; 0 exports the latest draft or master catalog")
	versionTemplateCmd.Flags().Int64Var(&versionDiagID, "diagnostic-id", 0, "diagnostic id (required with --id 0)")
	versionTemplateCmd.Flags().StringVar(&templateOut, "out", ".", "output directory")

	versionCmd.AddCommand(versionCreateCmd, versionImportCmd, versionFinalizeCmd,
		versionActivateCmd, versionShowCmd, versionTemplateCmd)
	rootCmd.AddCommand(versionCmd)
}
