// Package registry optionally advertises a running chatwire server's
// address in etcd so a future multi-node deployment can discover live
// servers. Adapted from the teacher's EtcdRegistry: the lease-based
// liveness mechanism is unchanged, the key drops the per-service
// segment, and Discover's result
// is trimmed to plain addresses (no Weight/Version/load balancer —
// spec §1 scopes this to one client per one server per connection, so
// there is nothing here for a balancer to pick between).
package registry

import (
	"context"
	"fmt"

	clientv3 "go.etcd.io/etcd/client/v3"
)

const keyPrefix = "/chatwire/servers/"

// Registry advertises and withdraws this process's address, and lets
// callers watch the current set of advertised addresses.
type Registry interface {
	Advertise(ctx context.Context, addr string, ttlSeconds int64) error
	Withdraw(ctx context.Context, addr string) error
	Watch(ctx context.Context) <-chan []string
	Close() error
}

// EtcdRegistry implements Registry using etcd v3.
type EtcdRegistry struct {
	client *clientv3.Client
}

// NewEtcd connects to the given etcd endpoints.
func NewEtcd(endpoints []string) (*EtcdRegistry, error) {
	client, err := clientv3.New(clientv3.Config{Endpoints: endpoints})
	if err != nil {
		return nil, fmt.Errorf("registry: connect etcd: %w", err)
	}
	return &EtcdRegistry{client: client}, nil
}

// Advertise puts addr under the server key prefix with a TTL-backed
// lease and starts a background keepalive, mirroring the teacher's
// Register — minus the per-service key segment, since there is exactly
// one kind of thing being advertised here.
func (r *EtcdRegistry) Advertise(ctx context.Context, addr string, ttlSeconds int64) error {
	lease, err := r.client.Grant(ctx, ttlSeconds)
	if err != nil {
		return fmt.Errorf("registry: grant lease: %w", err)
	}

	if _, err := r.client.Put(ctx, keyPrefix+addr, addr, clientv3.WithLease(lease.ID)); err != nil {
		return fmt.Errorf("registry: put: %w", err)
	}

	keepAlive, err := r.client.KeepAlive(ctx, lease.ID)
	if err != nil {
		return fmt.Errorf("registry: keepalive: %w", err)
	}
	go func() {
		for range keepAlive {
		}
	}()
	return nil
}

// Withdraw removes addr from the registry immediately, called during
// graceful shutdown before the listener stops accepting.
func (r *EtcdRegistry) Withdraw(ctx context.Context, addr string) error {
	if _, err := r.client.Delete(ctx, keyPrefix+addr); err != nil {
		return fmt.Errorf("registry: delete: %w", err)
	}
	return nil
}

// Watch emits the full current address list whenever it changes.
func (r *EtcdRegistry) Watch(ctx context.Context) <-chan []string {
	ch := make(chan []string, 1)
	go func() {
		watchChan := r.client.Watch(ctx, keyPrefix, clientv3.WithPrefix())
		for range watchChan {
			addrs, err := r.discover(ctx)
			if err != nil {
				continue
			}
			ch <- addrs
		}
	}()
	return ch
}

func (r *EtcdRegistry) discover(ctx context.Context) ([]string, error) {
	resp, err := r.client.Get(ctx, keyPrefix, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("registry: get: %w", err)
	}
	addrs := make([]string, len(resp.Kvs))
	for i, kv := range resp.Kvs {
		addrs[i] = string(kv.Value)
	}
	return addrs, nil
}

// Close releases the underlying etcd client connection.
func (r *EtcdRegistry) Close() error {
	return r.client.Close()
}
