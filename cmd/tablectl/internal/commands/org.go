package commands

import (
	"context"
	"fmt"
)

type SwitchCmd struct {
	Org string `arg:"" help:"Organization id or name"`
}

func (s *SwitchCmd) Run(ctx context.Context, globals *Globals) error {
	c, _, err := globals.connect()
	if err != nil {
		return err
	}

	orgID, err := currentOrg(ctx, c, s.Org)
	if err != nil {
		return err
	}

	user, err := c.SwitchOrganization(ctx, orgID)
	if err != nil {
		return fmt.Errorf("failed to switch organization: %w", err)
	}

	printMemberships(globals, user)
	return nil
}

type CreateOrgCmd struct {
	Name string `arg:"" help:"Organization name"`
}

func (o *CreateOrgCmd) Run(ctx context.Context, globals *Globals) error {
	c, _, err := globals.connect()
	if err != nil {
		return err
	}

	org, _, err := c.CreateOrganization(ctx, o.Name)
	if err != nil {
		return fmt.Errorf("failed to create organization: %w", err)
	}

	globals.printf("Created organization %s (%s)\n", org.Name, org.OrgID)
	return nil
}

type AddMemberCmd struct {
	Email string `arg:"" help:"Email of an existing user"`
	Org   string `help:"Organization id or name, defaults to the active organization"`
}

func (a *AddMemberCmd) Run(ctx context.Context, globals *Globals) error {
	c, _, err := globals.connect()
	if err != nil {
		return err
	}

	orgID, err := currentOrg(ctx, c, a.Org)
	if err != nil {
		return err
	}

	if _, err := c.AddMember(ctx, orgID, a.Email); err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}

	globals.printf("Added %s to %s\n", a.Email, orgID)
	return nil
}
