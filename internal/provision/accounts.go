package provision

import (
	"context"
	"fmt"
	"strings"

	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/audit"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/batch"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/lifecycle"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/registry"
)

// AccountSpec describes one account to provision.
type AccountSpec struct {
	Username        string `json:"username"`
	Secret          string `json:"password"`
	Elevated        bool   `json:"elevated,omitempty"`
	CreateContainer bool   `json:"create_container,omitempty"`
	Container       string `json:"container,omitempty"`
}

func (s AccountSpec) key() string {
	return s.Username
}

func (c *Coordinator) validateSpec(spec AccountSpec) error {
	if strings.TrimSpace(spec.Username) == "" {
		return errors.Validation("username is required")
	}
	if spec.Secret == "" {
		return errors.Validation("password is required for %s", spec.Username)
	}
	if spec.CreateContainer && spec.Container != "" {
		return errors.Validation("%s: create_container and container are mutually exclusive", spec.Username)
	}
	if spec.Container != "" {
		if err := c.names.ValidateContainerName(spec.Container); err != nil {
			return errors.Validation("%s: %v", spec.Username, err)
		}
	}
	return nil
}

// ProvisionAccounts creates every account in specs and binds each to a
// container. An empty batch is rejected outright; every other failure is
// reported per item. The item detail is the bound container name.
func (c *Coordinator) ProvisionAccounts(ctx context.Context, specs []AccountSpec) (*batch.Result, error) {
	if len(specs) == 0 {
		return nil, errors.Validation("no accounts to create")
	}

	res := batch.Run(ctx, specs, AccountSpec.key, c.provisionOne)
	logging.Info("accounts provisioned", "created", res.Succeeded, "failed", res.Failed+res.NotFound)
	return res, nil
}

func (c *Coordinator) provisionOne(ctx context.Context, spec AccountSpec) (string, error) {
	if err := c.validateSpec(spec); err != nil {
		return "", err
	}

	entityID, err := c.registry.CreateAccount(ctx, spec.Username, spec.Secret)
	if err != nil {
		return "", err
	}
	c.record(audit.EventAccountCreate, spec.Username, fmt.Sprintf("elevated=%t", spec.Elevated))

	if spec.Elevated {
		if err := c.registry.SetElevated(ctx, spec.Username, true); err != nil {
			logging.Warn("failed to elevate account", "username", spec.Username, "error", err)
		} else {
			c.record(audit.EventAccountElevate, spec.Username, "elevated=true")
		}
	}

	switch {
	case spec.CreateContainer:
		name, err := c.containers.Create(ctx, "", "")
		if err != nil {
			return "", errors.Partial(fmt.Sprintf("account %s created but container creation failed", spec.Username), err)
		}
		c.record(audit.EventContainerCreate, name, "owner="+spec.Username)

		conn, _, err := c.grantContainer(ctx, entityID, name)
		if err != nil {
			return name, errors.Partial(fmt.Sprintf("account %s and container %s created but not assigned", spec.Username, name), err)
		}
		c.record(audit.EventAssign, spec.Username, name+"="+conn)
		return name, nil

	case spec.Container != "":
		conn, _, err := c.grantContainer(ctx, entityID, spec.Container)
		if err != nil {
			return spec.Container, errors.Partial(fmt.Sprintf("account %s created but not assigned to %s", spec.Username, spec.Container), err)
		}
		c.record(audit.EventAssign, spec.Username, spec.Container+"="+conn)
		return spec.Container, nil
	}

	return "", nil
}

// DeleteResult summarises a bulk account deletion.
type DeleteResult struct {
	DeletedCount      int               `json:"deleted_count"`
	NotFoundCount     int               `json:"not_found_count"`
	FailedCount       int               `json:"failed_count"`
	ContainersDeleted int               `json:"containers_deleted"`
	Deleted           []string          `json:"deleted"`
	NotFound          []string          `json:"not_found"`
	Failed            []string          `json:"failed"`
	Errors            map[string]string `json:"errors,omitempty"`
}

// DeleteAccounts revokes every grant of each account and deletes it. With
// deleteContainers, the live containers matched by the account's grants are
// deleted first. The runtime is listed once for the whole batch.
func (c *Coordinator) DeleteAccounts(ctx context.Context, usernames []string, deleteContainers bool) (*DeleteResult, error) {
	if len(usernames) == 0 {
		return nil, errors.Validation("no accounts to delete")
	}

	var live []lifecycle.Container
	var listErr error
	if deleteContainers {
		live, listErr = c.containers.List(ctx)
		if listErr != nil {
			logging.Warn("failed to list containers for account deletion", "error", listErr)
		}
	}

	containersDeleted := 0
	res := batch.Run(ctx, usernames, batch.Identity, func(ctx context.Context, username string) (string, error) {
		entityID, err := c.registry.FindAccountEntity(ctx, username)
		if err != nil {
			return "", err
		}

		held, err := c.registry.ListAssignments(ctx, entityID)
		if err != nil {
			return "", err
		}

		var containerErrs []string
		if deleteContainers {
			if listErr != nil {
				return "", listErr
			}
			for _, ctr := range live {
				if !c.heldBy(held, ctr.Name) {
					continue
				}
				err := c.removeContainer(ctx, ctr.Name)
				switch {
				case err == nil:
					containersDeleted++
				case errors.IsNotFound(err):
					logging.Debug("container already gone", "name", ctr.Name)
				default:
					containerErrs = append(containerErrs, err.Error())
				}
			}
		}

		if _, err := c.registry.RevokeAll(ctx, entityID); err != nil {
			return "", err
		}
		if err := c.registry.DeleteAccount(ctx, username); err != nil {
			return "", err
		}
		c.record(audit.EventAccountDelete, username, fmt.Sprintf("grants=%d", len(held)))

		if len(containerErrs) > 0 {
			return "", errors.Partial(fmt.Sprintf("account %s deleted but some containers were not", username),
				fmt.Errorf("%s", strings.Join(containerErrs, "; ")))
		}
		return "", nil
	})

	out := &DeleteResult{
		DeletedCount:      res.Succeeded,
		NotFoundCount:     res.NotFound,
		FailedCount:       res.Failed,
		ContainersDeleted: containersDeleted,
		Deleted:           res.Keys(batch.KindSuccess),
		NotFound:          res.Keys(batch.KindNotFound),
		Failed:            res.Keys(batch.KindFailed),
		Errors:            res.Errors(),
	}
	logging.Info("accounts deleted", "deleted", out.DeletedCount, "not_found", out.NotFoundCount,
		"failed", out.FailedCount, "containers_deleted", out.ContainersDeleted)
	return out, nil
}

// AssignResult summarises an assignment request. ContainersAssigned counts
// new grants only; containers already covered are listed in AlreadyHeld.
type AssignResult struct {
	ContainersAssigned int               `json:"containers_assigned"`
	Assigned           []string          `json:"assigned"`
	AlreadyHeld        []string          `json:"already_held"`
	NotFound           []string          `json:"not_found"`
	Failed             []string          `json:"failed"`
	Errors             map[string]string `json:"errors,omitempty"`
}

const detailHeld = "already held"

// AssignContainers grants username READ on the connection of each named
// container it does not already cover. Existing grants are never revoked.
// An unknown account fails the whole request.
func (c *Coordinator) AssignContainers(ctx context.Context, username string, containers []string) (*AssignResult, error) {
	entityID, err := c.registry.FindAccountEntity(ctx, username)
	if err != nil {
		return nil, err
	}
	held, err := c.registry.ListAssignments(ctx, entityID)
	if err != nil {
		return nil, err
	}

	res := batch.Run(ctx, containers, batch.Identity, func(ctx context.Context, container string) (string, error) {
		if err := c.names.ValidateContainerName(container); err != nil {
			return "", errors.Validation("%v", err)
		}
		if c.heldBy(held, container) {
			return detailHeld, nil
		}

		conn, _, err := c.grantContainer(ctx, entityID, container)
		if err != nil {
			return "", err
		}
		held = append(held, registry.Connection{Name: conn})
		c.record(audit.EventAssign, username, container+"="+conn)
		return conn, nil
	})

	out := &AssignResult{
		Assigned:    []string{},
		AlreadyHeld: []string{},
		NotFound:    res.Keys(batch.KindNotFound),
		Failed:      res.Keys(batch.KindFailed),
		Errors:      res.Errors(),
	}
	for _, item := range res.Items {
		if item.Kind != batch.KindSuccess {
			continue
		}
		if item.Detail == detailHeld {
			out.AlreadyHeld = append(out.AlreadyHeld, item.Key)
		} else {
			out.Assigned = append(out.Assigned, item.Key)
		}
	}
	out.ContainersAssigned = len(out.Assigned)

	logging.Info("containers assigned", "username", username, "assigned", out.ContainersAssigned,
		"already_held", len(out.AlreadyHeld), "not_found", len(out.NotFound), "failed", len(out.Failed))
	return out, nil
}

// AssignedContainers returns the live containers whose connections username
// holds, in lifecycle order.
func (c *Coordinator) AssignedContainers(ctx context.Context, username string) ([]string, error) {
	entityID, err := c.registry.FindAccountEntity(ctx, username)
	if err != nil {
		return nil, err
	}
	held, err := c.registry.ListAssignments(ctx, entityID)
	if err != nil {
		return nil, err
	}
	if len(held) == 0 {
		return []string{}, nil
	}

	live, err := c.containers.List(ctx)
	if err != nil {
		return nil, err
	}

	names := []string{}
	for _, ctr := range live {
		if c.heldBy(held, ctr.Name) {
			names = append(names, ctr.Name)
		}
	}
	return names, nil
}

// AccountView is one account with the live containers it can reach.
type AccountView struct {
	registry.Account
	Containers []string `json:"containers"`
}

// Account returns a single account with its assignments.
func (c *Coordinator) Account(ctx context.Context, username string) (*AccountView, error) {
	accounts, err := c.registry.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	for _, acct := range accounts {
		if acct.Username != username {
			continue
		}
		containers, err := c.AssignedContainers(ctx, username)
		if err != nil {
			return nil, err
		}
		return &AccountView{Account: acct, Containers: containers}, nil
	}
	return nil, errors.NotFound("account", username)
}

// ResetPassword replaces an account's credential.
func (c *Coordinator) ResetPassword(ctx context.Context, username, secret string) error {
	if secret == "" {
		return errors.Validation("password is required")
	}
	if err := c.registry.ResetPassword(ctx, username, secret); err != nil {
		return err
	}
	c.record(audit.EventAccountPassword, username, "")
	return nil
}

// SetElevated grants or revokes administrator rights.
func (c *Coordinator) SetElevated(ctx context.Context, username string, elevated bool) error {
	if err := c.registry.SetElevated(ctx, username, elevated); err != nil {
		return err
	}
	c.record(audit.EventAccountElevate, username, fmt.Sprintf("elevated=%t", elevated))
	return nil
}
