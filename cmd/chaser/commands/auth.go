package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/momentumchaser/internal/contracts"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Kite 인증 토큰 확인",
	Long: `토큰 파일(KITE_TOKENS_FILE)의 access token이 유효한지 확인합니다.
Kite 토큰은 매일 만료되므로 장 마감 배치 전에 확인하세요.

Example:
  go run ./cmd/chaser auth check`,
}

var authCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "토큰으로 /user/profile 호출",
	RunE:  runAuthCheck,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authCheckCmd)
}

func runAuthCheck(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	client, err := a.kiteClient()
	if err != nil {
		PrintError(err.Error())
		return err
	}

	profile, err := client.Profile(cmd.Context())
	if contracts.IsAuthExpired(err) {
		PrintError("Access token expired, complete the login flow and rewrite " + a.cfg.Kite.TokensFile)
		return err
	}
	if err != nil {
		PrintError(fmt.Sprintf("Profile request failed: %v", err))
		return err
	}

	PrintKeyValue("User", fmt.Sprintf("%s (%s)", profile.UserName, profile.UserID), 6)
	PrintKeyValue("Broker", profile.Broker, 6)
	PrintSuccess("Token is valid")
	return nil
}
