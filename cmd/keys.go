package cmd

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Pairs34/CerrahPasaRandevu/internal/web"
)

func newKeysCmd() *cobra.Command {
	var password string

	c := &cobra.Command{
		Use:   "keys",
		Short: "Generate COOKIE_HASH_KEY, COOKIE_BLOCK_KEY and CRED_ENC_KEY values (base64)",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, name := range []string{"COOKIE_HASH_KEY", "COOKIE_BLOCK_KEY", "CRED_ENC_KEY"} {
				key := make([]byte, 32)
				if _, err := rand.Read(key); err != nil {
					return err
				}
				fmt.Fprintf(out, "export %s=%s\n", name, base64.StdEncoding.EncodeToString(key))
			}
			if password != "" {
				hash, err := web.HashPassword(password)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "export WEB_PASSWORD_BCRYPT='%s'\n", hash)
			}
			return nil
		},
	}

	c.Flags().StringVar(&password, "password", "", "also print WEB_PASSWORD_BCRYPT for this password")
	return c
}
