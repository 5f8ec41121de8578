package domain

import "time"

// Status is the persisted lifecycle state of a managed container.
type Status string

const (
	StatusRunning Status = "running"
	StatusStopped Status = "stopped"
	StatusRemoved Status = "removed"
)

// Action is a lifecycle operation that can be applied to a managed container.
type Action string

const (
	ActionStart   Action = "start"
	ActionStop    Action = "stop"
	ActionRestart Action = "restart"
	ActionRemove  Action = "remove"
)

// ParseAction validates a raw action string from the transport layer.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionStart, ActionStop, ActionRestart, ActionRemove:
		return Action(s), nil
	}
	return "", &ValidationError{Field: "action", Value: s}
}

// ContainerRecord is the persisted row tying a tenant to a runtime container.
// ContainerID is the runtime-assigned name and the join key to the runtime;
// it is unique across all records. Port is 0 for containers that are only
// reachable on the tenant network (the database).
type ContainerRecord struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	ContainerID string    `json:"container_id"`
	Port        int       `json:"port"`
	DBName      string    `json:"db_name"`
	Plan        string    `json:"plan"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PortBinding publishes a container port on the host. HostPort 0 asks the
// runtime for an ephemeral port.
type PortBinding struct {
	ContainerPort int
	HostPort      int
}

// ContainerSpec describes a container to be created and started by the
// runtime. Binds maps volume names to container paths.
type ContainerSpec struct {
	Image         string
	Name          string
	Network       string
	Env           []string
	Ports         []PortBinding
	Binds         map[string]string
	RestartPolicy string
	// Pull fetches the image from a registry when it is not present locally.
	// Locally built images must not set this.
	Pull bool
}
