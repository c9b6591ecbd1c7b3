package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"prizedesk/cmd/prizedesk/ui"
	"prizedesk/internal/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change operator settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		s := settingsMgr.Get()
		table := ui.NewTable(settingsMgr.Path(), []string{"key", "value"})
		for _, k := range settings.Keys {
			v, _ := s.Get(k)
			table.AddRow(k, v)
		}
		fmt.Fprint(cmd.OutOrStdout(), table.View(plainStyles(), ""))
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Change one setting",
	Long: `Changes one setting and saves the file. Keys:
  system_name, admin_email, autosave_minutes, notifications_enabled,
  security_logging, retention_days, backup_frequency, theme, language`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := settingsMgr.Get()
		if err := s.Set(args[0], args[1]); err != nil {
			return err
		}
		if err := settingsMgr.Save(s); err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), settings.MsgSaveFailed)
			return err
		}
		if err := settings.Apply(s, resolvedWorkspace()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), settings.MsgSaved)
		return nil
	},
}

var settingsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the default settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes && !confirm(cmd, settings.ResetConfirmMsg) {
			return errors.New("aborted")
		}
		s, err := settingsMgr.Reset()
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), settings.MsgResetFailed)
			return err
		}
		if err := settings.Apply(s, resolvedWorkspace()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), settings.MsgReset)
		return nil
	},
}

func init() {
	settingsResetCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsResetCmd)
}

func resolvedWorkspace() string {
	ws, err := resolveWorkspace()
	if err != nil {
		return "."
	}
	return ws
}
