package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/meko-christian/mail-watcher/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Interactively generate a config.yaml file",
	RunE: func(cmd *cobra.Command, args []string) error {
		configFile := "config.yaml"

		if _, err := os.Stat(configFile); err == nil && !initForce {
			fmt.Printf("config.yaml already exists. Use --force to overwrite.\n")
			return nil
		}

		reader := bufio.NewReader(os.Stdin)

		fmt.Println("Let's set up your config.yaml! Press enter to keep a default.")

		fmt.Println("\n--- IMAP ---")
		imapServer := promptDefault(reader, "IMAP server", config.DefaultIMAPServer)
		imapPort := promptInt(reader, "IMAP port", config.DefaultIMAPPort)
		imapSecurity := promptDefault(reader, "IMAP security (ssl/starttls)", config.DefaultIMAPSecurity)
		imapUser := prompt(reader, "Mail account: ")
		imapPass := prompt(reader, "App token (not the account password): ")

		fmt.Println("\n--- POLLING ---")
		interval := promptInt(reader, "Check interval in seconds", config.DefaultPollInterval)
		dbPath := promptDefault(reader, "Database file", config.DefaultStorePath)

		fmt.Println("\n--- STATUS PAGE ---")
		webPort := promptInt(reader, "Port", config.DefaultWebPort)

		content := fmt.Sprintf(`imap:
  server: %q
  port: %d
  security: %q
  username: %q
  password: %q

poll:
  interval: %d

store:
  path: %q

web:
  bind: %q
  port: %d
`, imapServer, imapPort, imapSecurity, imapUser, imapPass,
			interval, dbPath, config.DefaultWebBind, webPort)

		if err := os.WriteFile(configFile, []byte(content), 0o600); err != nil {
			return fmt.Errorf("failed to write config.yaml: %w", err)
		}

		fmt.Println("\n✅ config.yaml created successfully.")
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config.yaml")
}

func prompt(r *bufio.Reader, label string) string {
	fmt.Print(label)
	text, _ := r.ReadString('\n')
	return strings.TrimSpace(text)
}

func promptDefault(r *bufio.Reader, label, def string) string {
	if v := prompt(r, fmt.Sprintf("%s [%s]: ", label, def)); v != "" {
		return v
	}
	return def
}

func promptInt(r *bufio.Reader, label string, def int) int {
	for {
		v := promptDefault(r, label, strconv.Itoa(def))
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
		fmt.Printf("%q is not a number.\n", v)
	}
}
