package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	teamclient "github.com/hariseldon84/singlebrief-full-sub000/internal/teammgmt/client"
	teamdomain "github.com/hariseldon84/singlebrief-full-sub000/internal/teammgmt/domain"
)

func runTeam(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: singlebrief team <list|add|invite> [flags]")
		return errUsage
	}
	switch args[0] {
	case "list":
		return runTeamList(ctx, args[1:])
	case "add":
		return runTeamAdd(ctx, args[1:])
	case "invite":
		return runTeamInvite(ctx, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "singlebrief team: unknown subcommand %q\n", args[0])
		return errUsage
	}
}

// teamApp restores the session and returns a team client bound to it.
func teamApp(ctx context.Context, profile string) (*app, *teamclient.Client, error) {
	a, err := newApp(ctx, appOptions{profile: profile})
	if err != nil {
		return nil, nil, err
	}
	if err := a.session.Restore(ctx); err != nil {
		a.close()
		return nil, nil, err
	}
	if !a.session.IsAuthenticated() {
		a.close()
		return nil, nil, errNotSignedIn
	}
	c := teamclient.New(a.cfg.APIBaseURL, a.cfg.Timeout(), a.session, restOptions(a.cfg, a.logger)...)
	return a, c, nil
}

func runTeamList(ctx context.Context, args []string) error {
	fs, profile := newFlagSet("team list")
	activeOnly := fs.Bool("active", false, "only members that can be asked questions")
	if err := fs.Parse(args); err != nil {
		return err
	}
	a, c, err := teamApp(ctx, *profile)
	if err != nil {
		return err
	}
	defer a.close()

	var members []teamdomain.Member
	if *activeOnly {
		members, err = c.ActiveMembers(ctx)
	} else {
		members, err = c.ListMembers(ctx)
	}
	if err != nil {
		return err
	}
	if len(members) == 0 {
		fmt.Println("No team members yet; add one with `singlebrief team add`.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tROLE\tDEPARTMENT\tSTATUS")
	for _, m := range members {
		role := m.Designation
		if role == "" {
			role = m.Role
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", m.ID, m.FullName, m.Email, role, m.Department, m.Status)
	}
	return w.Flush()
}

func runTeamAdd(ctx context.Context, args []string) error {
	fs, profile := newFlagSet("team add")
	var in teamdomain.MemberInput
	fs.StringVarP(&in.FullName, "name", "n", "", "full name (required)")
	fs.StringVarP(&in.Email, "email", "e", "", "email (required)")
	fs.StringVar(&in.Role, "role", "", "team role")
	fs.StringVar(&in.Department, "department", "", "department")
	fs.StringVar(&in.Designation, "designation", "", "job title shown when selecting recipients")
	fs.StringVar(&in.Channel, "channel", "", "preferred contact channel (slack, email, teams, ...)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	a, c, err := teamApp(ctx, *profile)
	if err != nil {
		return err
	}
	defer a.close()

	m, err := c.CreateMember(ctx, in)
	if err != nil {
		return err
	}
	fmt.Printf("Added %s <%s> (%s).\n", m.FullName, m.Email, m.ID)
	return nil
}

func runTeamInvite(ctx context.Context, args []string) error {
	fs, profile := newFlagSet("team invite")
	var req teamdomain.InvitationRequest
	fs.StringVarP(&req.EmailAddress, "email", "e", "", "email to invite (required)")
	fs.StringVarP(&req.FullName, "name", "n", "", "invitee's full name")
	role := fs.String("role", string(teamdomain.InvitationRoleMember), "organization role on acceptance: admin or member")
	if err := fs.Parse(args); err != nil {
		return err
	}
	req.Role = teamdomain.InvitationRole(*role)

	a, c, err := teamApp(ctx, *profile)
	if err != nil {
		return err
	}
	defer a.close()

	inv, err := c.InviteMember(ctx, req)
	if err != nil {
		return err
	}
	fmt.Printf("Invited %s as %s; the invitation expires %s.\n",
		inv.EmailAddress, inv.Role, inv.ExpiresAt.Local().Format("2006-01-02 15:04"))
	return nil
}
