package commands

import (
	"fmt"

	"github.com/koscakluka/gisa/internal/livekit"
	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a LiveKit access token",
	Long: `Issue a token that lets a participant join a room, publish and subscribe
to audio and publish data.

Example:
  gisa token --room atendimento --participant maria`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		room, _ := cmd.Flags().GetString("room")
		participant, _ := cmd.Flags().GetString("participant")
		ttl, _ := cmd.Flags().GetDuration("ttl")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		token, err := livekit.IssueToken(livekit.Credentials{
			URL:       cfg.LiveKit.URL,
			APIKey:    cfg.LiveKit.APIKey,
			APISecret: cfg.LiveKit.APISecret,
		}, livekit.TokenRequest{Room: room, Name: participant, TTL: ttl})
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringP("room", "r", "", "room name")
	tokenCmd.Flags().StringP("participant", "p", "", "participant name")
	tokenCmd.Flags().Duration("ttl", livekit.DefaultTokenTTL, "token lifetime")
	_ = tokenCmd.MarkFlagRequired("room")
	_ = tokenCmd.MarkFlagRequired("participant")
	rootCmd.AddCommand(tokenCmd)
}
