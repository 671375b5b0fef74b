// Package cloudrelay forwards decoded downlink frames and staged
// provisioning profiles to Azure Storage, as an optional sink a running
// node can attach. Every client is built from a single pre-signed URL
// (queue/table/blob), the same "no credential, caller supplies SAS"
// pattern the rest of the example pack uses for bootstrap-free wiring.
package cloudrelay

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blockblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
)

// Frame is a decoded downlink, the unit cloudrelay forwards.
type Frame struct {
	Payload   []byte
	RSSI      int8
	SNR       int8
	DecodedAt time.Time
}

// Relay pushes frames to whichever sinks were configured; a nil client
// field disables that sink.
type Relay struct {
	queue *azqueue.QueueClient
	table *aztables.Client
	blob  *blockblob.Client
}

// New builds a Relay from pre-signed SAS URLs. Any URL may be empty to
// disable that sink.
func New(queueURL, tableURL, profileBlobURL string) (*Relay, error) {
	r := &Relay{}

	if queueURL != "" {
		c, err := azqueue.NewQueueClientWithNoCredential(queueURL, nil)
		if err != nil {
			return nil, fmt.Errorf("cloudrelay: queue client: %w", err)
		}
		r.queue = c
	}
	if tableURL != "" {
		c, err := aztables.NewClientWithNoCredential(tableURL, nil)
		if err != nil {
			return nil, fmt.Errorf("cloudrelay: table client: %w", err)
		}
		r.table = c
	}
	if profileBlobURL != "" {
		c, err := blockblob.NewClientWithNoCredential(profileBlobURL, nil)
		if err != nil {
			return nil, fmt.Errorf("cloudrelay: blob client: %w", err)
		}
		r.blob = c
	}
	return r, nil
}

// PushFrame enqueues the frame (base64 payload, for text-safe queue
// transport) and, if a table sink is configured, records it alongside for
// later querying by decode time.
func (r *Relay) PushFrame(ctx context.Context, f Frame) error {
	if r.queue != nil {
		msg := base64.StdEncoding.EncodeToString(f.Payload)
		if _, err := r.queue.EnqueueMessage(ctx, msg, nil); err != nil {
			return fmt.Errorf("cloudrelay: enqueue: %w", err)
		}
	}
	if r.table != nil {
		entity := map[string]any{
			"PartitionKey": "frame",
			"RowKey":       f.DecodedAt.Format(time.RFC3339Nano),
			"Payload":      f.Payload,
			"RSSI":         int32(f.RSSI),
			"SNR":          int32(f.SNR),
		}
		data, err := json.Marshal(entity)
		if err != nil {
			return fmt.Errorf("cloudrelay: marshal entity: %w", err)
		}
		if _, err := r.table.AddEntity(ctx, data, nil); err != nil {
			return fmt.Errorf("cloudrelay: add entity: %w", err)
		}
	}
	return nil
}

// PushProfile uploads a sealed provisioning profile (see pkgs/keystore) as
// a block blob, for operators who stage credentials centrally instead of
// per-machine.
func (r *Relay) PushProfile(ctx context.Context, sealed []byte) error {
	if r.blob == nil {
		return nil
	}
	_, err := r.blob.UploadBuffer(ctx, sealed, nil)
	if err != nil {
		return fmt.Errorf("cloudrelay: upload profile: %w", err)
	}
	return nil
}
