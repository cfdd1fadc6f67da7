package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	log "github.com/sirupsen/logrus"
)

const queueAlreadyExists = "QueueAlreadyExists"

func alreadyExists(err error, code string) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.ErrorCode == code
}

// EnsureTables creates the named tables, skipping empty names and tables that
// already exist.
func EnsureTables(ctx context.Context, connStr string, names ...string) error {
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, tableClientOptions())
	if err != nil {
		return fmt.Errorf("table service: %w", err)
	}
	for _, name := range names {
		if name == "" {
			continue
		}
		if _, err := svc.NewClient(name).CreateTable(ctx, nil); err != nil {
			if alreadyExists(err, string(aztables.TableAlreadyExists)) {
				continue
			}
			return fmt.Errorf("create table %s: %w", name, err)
		}
		log.WithField("table", name).Info("table created")
	}
	return nil
}

// EnsureQueue creates the named queue unless it already exists.
func EnsureQueue(ctx context.Context, connStr, name string) error {
	if name == "" {
		return nil
	}
	q, err := azqueue.NewQueueClientFromConnectionString(connStr, name, nil)
	if err != nil {
		return fmt.Errorf("queue client: %w", err)
	}
	if _, err := q.Create(ctx, nil); err != nil {
		if alreadyExists(err, queueAlreadyExists) {
			return nil
		}
		return fmt.Errorf("create queue %s: %w", name, err)
	}
	log.WithField("queue", name).Info("queue created")
	return nil
}
