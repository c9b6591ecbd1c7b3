package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"prizedesk/cmd/prizedesk/shell"
	"prizedesk/internal/logging"
)

// runShell starts the interactive console.
func runShell(cmd *cobra.Command, args []string) error {
	ws, err := resolveWorkspace()
	if err != nil {
		return err
	}

	m := shell.New(shell.Deps{
		Client:    newClient(),
		Config:    cfg,
		Settings:  settingsMgr,
		Workspace: ws,
	})
	defer m.Close()

	logging.Boot("starting shell against %s", cfg.API.BaseURL)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		logger.Error("shell exited", zap.Error(err))
		return fmt.Errorf("shell: %w", err)
	}
	return nil
}
