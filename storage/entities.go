package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/bytedance/sonic"

	"prism-dashboard/domain"
)

type projectEntity struct {
	aztables.Entity
	Name       string    `json:"Name"`
	Members    string    `json:"Members"`
	Visibility string    `json:"Visibility"`
	Status     string    `json:"Status"`
	CreatedAt  time.Time `json:"CreatedAt"`
	UpdatedAt  time.Time `json:"UpdatedAt"`
}

// membershipEntity is a member -> project index row. RowKey is the project ID.
type membershipEntity struct {
	aztables.Entity
	OwnerID string `json:"OwnerID"`
}

type taskEntity struct {
	aztables.Entity
	Status     string     `json:"Status"`
	Priority   string     `json:"Priority"`
	AssigneeID string     `json:"AssigneeID"`
	DueDate    *time.Time `json:"DueDate"`
	CreatedAt  time.Time  `json:"CreatedAt"`
	UpdatedAt  time.Time  `json:"UpdatedAt"`
}

func decodeProjectEntity(data []byte) (domain.Project, error) {
	var ent projectEntity
	if err := sonic.Unmarshal(data, &ent); err != nil {
		return domain.Project{}, fmt.Errorf("decode project entity: %w", err)
	}
	var members []string
	if m := strings.TrimSpace(ent.Members); m != "" {
		if err := sonic.UnmarshalString(m, &members); err != nil {
			return domain.Project{}, fmt.Errorf("decode members of project %s: %w", ent.RowKey, err)
		}
	}
	return domain.Project{
		ID:         ent.RowKey,
		Name:       ent.Name,
		OwnerID:    ent.PartitionKey,
		Members:    members,
		Visibility: domain.Visibility(ent.Visibility),
		Status:     domain.ProjectStatus(ent.Status),
		CreatedAt:  ent.CreatedAt,
		UpdatedAt:  ent.UpdatedAt,
	}, nil
}

func decodeMembershipEntity(data []byte) (membershipEntity, error) {
	var ent membershipEntity
	if err := sonic.Unmarshal(data, &ent); err != nil {
		return membershipEntity{}, fmt.Errorf("decode membership entity: %w", err)
	}
	return ent, nil
}

func decodeTaskEntity(data []byte) (domain.Task, error) {
	var ent taskEntity
	if err := sonic.Unmarshal(data, &ent); err != nil {
		return domain.Task{}, fmt.Errorf("decode task entity: %w", err)
	}
	return domain.Task{
		ID:         ent.RowKey,
		ProjectID:  ent.PartitionKey,
		Status:     domain.TaskStatus(ent.Status),
		Priority:   domain.TaskPriority(ent.Priority),
		AssigneeID: ent.AssigneeID,
		DueDate:    ent.DueDate,
		CreatedAt:  ent.CreatedAt,
		UpdatedAt:  ent.UpdatedAt,
	}, nil
}

func decodeTaskStatus(data []byte) (domain.TaskStatus, error) {
	var raw struct {
		Status string `json:"Status"`
	}
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return "", fmt.Errorf("decode task status: %w", err)
	}
	return domain.TaskStatus(raw.Status), nil
}
