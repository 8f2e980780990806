package main

import (
	"github.com/spf13/cobra"

	"qualify/internal/app"
)

type regeneratedCertificate struct {
	ID       string `json:"id"`
	RecordID string `json:"record_id"`
	URL      string `json:"url"`
}

func newCertificatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "certificates",
		Short: "Maintain completion certificates",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "regenerate",
		Short: "Re-render certificates stored without an artifact URL",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				certs, err := a.Records.RegenerateCertificates(cmd.Context())
				out := make([]regeneratedCertificate, 0, len(certs))
				for _, c := range certs {
					out = append(out, regeneratedCertificate{ID: c.ID, RecordID: c.RecordID.String(), URL: c.URL})
				}
				if perr := printJSON(cmd.OutOrStdout(), out); perr != nil {
					return perr
				}
				return err
			})
		},
	})
	return cmd
}
