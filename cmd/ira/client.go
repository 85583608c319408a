package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"ira/internal/auth"
	"ira/internal/client"
	"ira/internal/incidents"
)

var errNotLoggedIn = errors.New("not logged in: run `ira login` first")

// openSession loads the session file and builds a client for the chosen server.
func openSession(flags *globalFlags) (*client.Session, *client.Client, error) {
	path := flags.sessionPath
	if path == "" {
		p, err := client.DefaultSessionPath()
		if err != nil {
			return nil, nil, err
		}
		path = p
	}
	sess := client.NewSession(path)
	if err := sess.Load(); err != nil {
		return nil, nil, err
	}
	server := flags.server
	if server == "" {
		server = sess.Server()
	}
	return sess, client.New(server, client.WithToken(sess.Token())), nil
}

func requireLogin(flags *globalFlags) (*client.Session, *client.Client, error) {
	sess, c, err := openSession(flags)
	if err != nil {
		return nil, nil, err
	}
	if !sess.LoggedIn() {
		return nil, nil, errNotLoggedIn
	}
	return sess, c, nil
}

func serverOf(flags *globalFlags, sess *client.Session) string {
	if flags.server != "" {
		return flags.server
	}
	return sess.Server()
}

func newLoginCmd(flags *globalFlags) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, c, err := openSession(flags)
			if err != nil {
				return err
			}
			resp, err := c.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			if err := sess.Set(serverOf(flags, sess), resp.Token, client.SessionUserFrom(resp.User)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", resp.User.Name, resp.User.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newRegisterCmd(flags *globalFlags) *cobra.Command {
	var in auth.RegisterInput
	var role string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, c, err := openSession(flags)
			if err != nil {
				return err
			}
			in.Role = auth.Role(role)
			resp, err := c.Register(cmd.Context(), in)
			if err != nil {
				return err
			}
			if err := sess.Set(serverOf(flags, sess), resp.Token, client.SessionUserFrom(resp.User)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s <%s>\n", resp.User.Name, resp.User.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "full name")
	cmd.Flags().StringVar(&in.Email, "email", "", "account email")
	cmd.Flags().StringVar(&in.Password, "password", "", "account password")
	cmd.Flags().StringVar(&role, "role", string(auth.DefaultRole), "team role, one of: "+roleList())
	return cmd
}

func roleList() string {
	roles := auth.Roles()
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return strings.Join(names, ", ")
}

func newLogoutCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, _, err := openSession(flags)
			if err != nil {
				return err
			}
			if err := sess.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newWhoamiCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, _, err := requireLogin(flags)
			if err != nil {
				return err
			}
			u, _ := sess.User()
			fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s <%s>\n%s @ %s\n", u.Avatar, u.Name, u.Email, u.Role, sess.Server())
			return nil
		},
	}
}

func newChatCmd(flags *globalFlags) *cobra.Command {
	var session string
	var fresh bool
	cmd := &cobra.Command{
		Use:   "chat [message...]",
		Short: "Talk to the incident bot; with no message, read lines from stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, c, err := requireLogin(flags)
			if err != nil {
				return err
			}
			if fresh {
				session = fmt.Sprintf("session_%d", time.Now().UnixMilli())
				fmt.Fprintf(cmd.ErrOrStderr(), "session: %s\n", session)
			}
			if len(args) > 0 {
				return chatOnce(cmd.Context(), c, cmd.OutOrStdout(), strings.Join(args, " "), session)
			}
			return chatLoop(cmd.Context(), c, cmd.InOrStdin(), cmd.OutOrStdout(), session)
		},
	}
	cmd.Flags().StringVar(&session, "session", "default", "chat session id")
	cmd.Flags().BoolVar(&fresh, "new", false, "start a new session")
	return cmd
}

func chatOnce(ctx context.Context, c *client.Client, w io.Writer, text, session string) error {
	reply, err := c.Send(ctx, text, session)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, reply)
	return nil
}

func chatLoop(ctx context.Context, c *client.Client, r io.Reader, w io.Writer, session string) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		if err := chatOnce(ctx, c, w, text, session); err != nil {
			// Errors are shown and the loop carries on, like the chat window.
			fmt.Fprintf(w, "error: %v\n", err)
		}
	}
	return sc.Err()
}

func newHistoryCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "history <session>",
		Short: "Print a chat session transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, c, err := requireLogin(flags)
			if err != nil {
				return err
			}
			msgs, err := c.History(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(msgs) == 0 {
				fmt.Fprintln(out, "No messages in this session yet.")
				return nil
			}
			for _, m := range msgs {
				fmt.Fprintf(out, "%s  %-4s  %s\n", m.CreatedAt.Local().Format(time.TimeOnly), m.Role, m.Text)
			}
			return nil
		},
	}
}

func newIncidentsCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "incidents",
		Short: "List, open and update incidents",
	}

	var filter incidents.ListFilter
	var status, severity string
	list := &cobra.Command{
		Use:   "list",
		Short: "List incidents, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, c, err := requireLogin(flags)
			if err != nil {
				return err
			}
			filter.Status = incidents.Status(status)
			filter.Severity = incidents.Severity(severity)
			incs, err := c.ListIncidents(cmd.Context(), filter)
			if err != nil {
				return err
			}
			printIncidents(cmd.OutOrStdout(), incs)
			return nil
		},
	}
	list.Flags().StringVar(&status, "status", "", "filter by status")
	list.Flags().StringVar(&severity, "severity", "", "filter by severity")
	list.Flags().IntVar(&filter.Limit, "limit", 0, "maximum rows")

	var in client.NewIncident
	var createSeverity string
	create := &cobra.Command{
		Use:   "create",
		Short: "Open an incident",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, c, err := requireLogin(flags)
			if err != nil {
				return err
			}
			in.Severity = incidents.Severity(createSeverity)
			inc, err := c.CreateIncident(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Opened %s [%s] %s\n", inc.ID, inc.Severity, inc.Title)
			return nil
		},
	}
	create.Flags().StringVar(&in.Title, "title", "", "incident title")
	create.Flags().StringVar(&createSeverity, "severity", "", "P0-P3 (default P2)")
	create.Flags().StringVar(&in.Service, "service", "", "affected service")
	create.Flags().StringVar(&in.Message, "message", "", "details")
	_ = create.MarkFlagRequired("title")

	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of an incident",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, c, err := requireLogin(flags)
			if err != nil {
				return err
			}
			patch := patchFromFlags(cmd)
			inc, err := c.UpdateIncident(cmd.Context(), args[0], patch)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s [%s] %s (%s)\n", inc.ID, inc.Severity, inc.Title, inc.Status)
			return nil
		},
	}
	update.Flags().String("title", "", "new title")
	update.Flags().String("severity", "", "new severity")
	update.Flags().String("status", "", "new status")
	update.Flags().String("service", "", "new service")
	update.Flags().String("message", "", "new details")

	cmd.AddCommand(list, create, update)
	return cmd
}

// patchFromFlags includes only the flags the user actually set, so an explicit
// empty value still reaches the server.
func patchFromFlags(cmd *cobra.Command) incidents.Patch {
	var p incidents.Patch
	str := func(name string) *string {
		if !cmd.Flags().Changed(name) {
			return nil
		}
		v, _ := cmd.Flags().GetString(name)
		return &v
	}
	p.Title = str("title")
	p.Service = str("service")
	p.Message = str("message")
	if v := str("severity"); v != nil {
		s := incidents.Severity(*v)
		p.Severity = &s
	}
	if v := str("status"); v != nil {
		s := incidents.Status(*v)
		p.Status = &s
	}
	return p
}

func printIncidents(w io.Writer, incs []incidents.Incident) {
	if len(incs) == 0 {
		fmt.Fprintln(w, "No incidents.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSEV\tSTATUS\tSERVICE\tTITLE\tOPENED BY\tCREATED")
	for _, inc := range incs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			inc.ID, inc.Severity, inc.Status, inc.Service, inc.Title, inc.CreatedBy.Name,
			inc.CreatedAt.Local().Format(time.DateTime))
	}
	_ = tw.Flush()
}
