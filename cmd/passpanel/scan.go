package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/passpanel/internal/adapter/driven/htmlpage"
	"github.com/ericfisherdev/passpanel/internal/application"
	"github.com/ericfisherdev/passpanel/internal/domain/model"
)

var scanTimeout time.Duration

var scanCmd = &cobra.Command{
	Use:   "scan <url-or-file>",
	Short: "Report the login fields and autofill targets detected on a page",
	Long: `Scan downloads an HTML page (or reads a local file) and runs the same
field detection the browser agent uses. Layout is taken from inline styles
only, so pages that hide fields with stylesheets may report extra fields.`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().DurationVar(&scanTimeout, "timeout", 15*time.Second, "HTTP timeout for remote pages")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	snap, err := htmlpage.NewFetcher(scanTimeout).Load(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Page:   %s\n", snap.URL)
	fmt.Fprintf(out, "Forms:  %d\n", snap.Forms)
	fmt.Fprintf(out, "Fields: %d\n\n", len(snap.Fields))

	login, form := application.DetectInSnapshot(snap)
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ROLE\tFORM\tFIELD\tSTRATEGY")
	if login.Username != nil {
		fmt.Fprintf(tw, "username\t%s\t%s\t%s\n", formLabel(form), describeField(*login.Username), login.Strategy)
	}
	if login.Password != nil {
		fmt.Fprintf(tw, "password\t%s\t%s\t-\n", formLabel(form), describeField(*login.Password))
	}
	if btn, ok := application.FindLoginButton(snap.InForm(form)); ok {
		fmt.Fprintf(tw, "submit\t%s\t%s\t-\n", formLabel(form), describeField(btn))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if !login.Complete() {
		fmt.Fprintln(out, "\nNo complete login form detected.")
	}

	targets := application.DetectAffordanceTargets(snap)
	fmt.Fprintf(out, "\nAutofill targets: %d username, %d password\n", len(targets.Usernames), len(targets.Passwords))
	for _, f := range targets.Usernames {
		fmt.Fprintf(out, "  username  %s\n", describeField(f))
	}
	for _, f := range targets.Passwords {
		fmt.Fprintf(out, "  password  %s\n", describeField(f))
	}

	return nil
}

func formLabel(form int) string {
	if form == model.NoForm {
		return "none"
	}
	return fmt.Sprintf("#%d", form)
}

// describeField prints the most specific locator the field has.
func describeField(f model.FormField) string {
	switch {
	case f.ElementID != "":
		return fmt.Sprintf("%s#%s", f.Tag, f.ElementID)
	case f.Name != "":
		return fmt.Sprintf("%s[name=%s]", f.Tag, f.Name)
	case f.Text != "":
		return fmt.Sprintf("%s %q", f.Tag, f.Text)
	default:
		return fmt.Sprintf("%s[type=%s]", f.Tag, f.Type)
	}
}
