package service

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/alpacapps/spaces/internal/crypto"
	"github.com/alpacapps/spaces/internal/model"
	"github.com/alpacapps/spaces/internal/repository"
)

var (
	ErrServiceRequired = errors.New("service name is required")
	ErrInvalidOrder    = errors.New("order must list each entry exactly once")
)

const UnassignedGroup = "Unassigned"

type VaultInput struct {
	ID            string // empty for create
	Service       string
	Category      string
	Username      string
	Password      string // empty keeps the stored password on update
	ClearPassword bool
	URL           string
	Notes         string
	SpaceID       string
}

// VaultPage is everything the vault views render in one load.
type VaultPage struct {
	Entries    []*model.VaultEntry
	Groups     []*model.VaultGroup
	Categories []string
	Spaces     []*model.Space
}

type VaultService struct {
	vaultRepository repository.VaultRepository
	spaceRepository repository.SpaceRepository
	cipher          *crypto.VaultCipher
}

func NewVaultService(
	vaultRepository repository.VaultRepository,
	spaceRepository repository.SpaceRepository,
	cipher *crypto.VaultCipher,
) *VaultService {
	return &VaultService{
		vaultRepository: vaultRepository,
		spaceRepository: spaceRepository,
		cipher:          cipher,
	}
}

// Page loads entries, categories and spaces in parallel.
func (s *VaultService) Page(filter model.VaultFilter) (*VaultPage, error) {
	page := &VaultPage{}

	var g errgroup.Group
	g.Go(func() error {
		entries, err := s.vaultRepository.List(filter)
		page.Entries = entries
		return err
	})
	g.Go(func() error {
		categories, err := s.vaultRepository.Categories()
		page.Categories = categories
		return err
	})
	g.Go(func() error {
		spaces, err := s.spaceRepository.List()
		page.Spaces = spaces
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load vault: %w", err)
	}

	page.Groups = GroupBySpace(page.Entries)
	return page, nil
}

// GroupBySpace splits entries by linked space, keeping their order within
// each group. Groups sort by space name; unlinked entries come last.
func GroupBySpace(entries []*model.VaultEntry) []*model.VaultGroup {
	byID := map[string]*model.VaultGroup{}
	var groups []*model.VaultGroup
	var unassigned *model.VaultGroup

	for _, e := range entries {
		if e.SpaceID == nil || *e.SpaceID == "" {
			if unassigned == nil {
				unassigned = &model.VaultGroup{SpaceName: UnassignedGroup}
			}
			unassigned.Entries = append(unassigned.Entries, e)
			continue
		}

		g, ok := byID[*e.SpaceID]
		if !ok {
			name := *e.SpaceID
			if e.SpaceName != nil {
				name = *e.SpaceName
			}
			g = &model.VaultGroup{SpaceID: *e.SpaceID, SpaceName: name}
			byID[*e.SpaceID] = g
			groups = append(groups, g)
		}
		g.Entries = append(g.Entries, e)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return strings.ToLower(groups[i].SpaceName) < strings.ToLower(groups[j].SpaceName)
	})
	if unassigned != nil {
		groups = append(groups, unassigned)
	}
	return groups
}

func (s *VaultService) ByID(id string) (*model.VaultEntry, error) {
	return s.vaultRepository.ByID(id)
}

func (s *VaultService) Save(input VaultInput) (*model.VaultEntry, error) {
	input.Service = strings.TrimSpace(input.Service)
	if input.Service == "" {
		return nil, ErrServiceRequired
	}

	var spaceID *string
	if input.SpaceID != "" {
		if _, err := s.spaceRepository.ByID(input.SpaceID); err != nil {
			return nil, err
		}
		spaceID = &input.SpaceID
	}

	now := time.Now()
	entry := &model.VaultEntry{IsActive: true, CreatedAt: now}
	if input.ID != "" {
		existing, err := s.vaultRepository.ByID(input.ID)
		if err != nil {
			return nil, err
		}
		entry = existing
	}

	entry.Service = input.Service
	entry.Category = strings.ToLower(strings.TrimSpace(input.Category))
	entry.Username = strings.TrimSpace(input.Username)
	entry.URL = strings.TrimSpace(input.URL)
	entry.Notes = input.Notes
	entry.SpaceID = spaceID
	entry.UpdatedAt = now

	switch {
	case input.Password != "":
		enc, err := s.cipher.Encrypt(input.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt password: %w", err)
		}
		entry.PasswordEnc = enc
	case input.ClearPassword:
		entry.PasswordEnc = ""
	}

	if input.ID != "" {
		if err := s.vaultRepository.Update(entry); err != nil {
			return nil, fmt.Errorf("failed to update entry: %w", err)
		}
		slog.Info("vault entry updated", "entry_id", entry.ID, "service", entry.Service)
		return s.vaultRepository.ByID(entry.ID)
	}

	order, err := s.vaultRepository.NextOrder()
	if err != nil {
		return nil, fmt.Errorf("failed to compute order: %w", err)
	}
	entry.ID = uuid.New().String()
	entry.DisplayOrder = order

	if err := s.vaultRepository.Create(entry); err != nil {
		return nil, fmt.Errorf("failed to create entry: %w", err)
	}
	slog.Info("vault entry created", "entry_id", entry.ID, "service", entry.Service)
	return s.vaultRepository.ByID(entry.ID)
}

// Reveal decrypts an entry's password and writes an audit log line.
func (s *VaultService) Reveal(actor *model.User, id string) (string, error) {
	entry, err := s.vaultRepository.ByID(id)
	if err != nil {
		return "", err
	}

	password, err := s.cipher.Decrypt(entry.PasswordEnc)
	if err != nil {
		slog.Error("vault decrypt failed", "entry_id", id, "error", err)
		return "", fmt.Errorf("failed to decrypt password: %w", err)
	}

	slog.Info("vault password revealed", "actor_id", actor.ID, "actor_email", actor.Email, "entry_id", id, "service", entry.Service)
	return password, nil
}

func (s *VaultService) ToggleActive(id string) (*model.VaultEntry, error) {
	entry, err := s.vaultRepository.ByID(id)
	if err != nil {
		return nil, err
	}
	if err := s.vaultRepository.SetActive(id, !entry.IsActive); err != nil {
		return nil, err
	}
	entry.IsActive = !entry.IsActive
	return entry, nil
}

func (s *VaultService) Delete(actor *model.User, id string) error {
	if err := s.vaultRepository.Delete(id); err != nil {
		return err
	}
	slog.Info("vault entry deleted", "actor_id", actor.ID, "entry_id", id)
	return nil
}

// Reorder applies a drag-and-drop ordering.
func (s *VaultService) Reorder(ids []string) error {
	if len(ids) == 0 {
		return ErrInvalidOrder
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			return ErrInvalidOrder
		}
		seen[id] = true
	}
	return s.vaultRepository.Reorder(ids)
}

func (s *VaultService) Generate(length int) (string, error) {
	if length == 0 {
		length = crypto.DefaultPasswordLength
	}
	return crypto.GeneratePassword(length)
}
