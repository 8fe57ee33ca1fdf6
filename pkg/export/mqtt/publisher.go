// Package mqtt publishes radio state snapshots to an MQTT broker for
// observing UIs. The feed is one-way: no commands arrive over MQTT.
package mqtt

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/denisbrodbeck/machineid"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"

	"github.com/rcwire/elrsctl/pkg/state"
)

// DefaultTopicPrefix is used when the broker URL carries no path.
const DefaultTopicPrefix = "elrsctl"

// minPublishInterval coalesces bursts of state changes; the observer
// fires per mutation, the broker sees at most one snapshot per interval.
const minPublishInterval = 100 * time.Millisecond

// ClientOptionsFromURL creates ClientOptions from URL. The URL path
// becomes the topic prefix.
func ClientOptionsFromURL(serverURL string) (*paho.ClientOptions, string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, "", err
	}
	var server string
	if u.Scheme == "" || u.Scheme == "mqtt" {
		server = "tcp"
	} else {
		server = u.Scheme
	}
	server += "://" + u.Host

	topicPrefix := strings.Trim(u.Path, "/")
	if topicPrefix == "" {
		topicPrefix = DefaultTopicPrefix
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(server)
	opts.SetClientID(clientID())
	if u.User != nil {
		opts.SetUsername(u.User.Username())
		if password, ok := u.User.Password(); ok {
			opts.SetPassword(password)
		}
	}
	opts.SetAutoReconnect(true)
	return opts, topicPrefix, nil
}

func clientID() string {
	id, err := machineid.ID()
	if err != nil {
		return "elrsctl"
	}
	if len(id) > 8 {
		id = id[:8]
	}
	return "elrsctl-" + id
}

// snapshot is the JSON document published per state change.
type snapshot struct {
	Status        string              `json:"status"`
	Mode          string              `json:"mode"`
	Device        state.DeviceConfig  `json:"device"`
	Telemetry     state.LiveTelemetry `json:"telemetry"`
	UptimeSeconds int64               `json:"uptimeSeconds"`
	Error         string              `json:"error,omitempty"`
}

// Publisher forwards RadioState changes to a broker. Attach with
// State.Subscribe(p.Notify): Notify never blocks, the publishing work
// happens on the Run goroutine.
type Publisher struct {
	State *state.RadioState

	options     *paho.ClientOptions
	topicPrefix string
	notifyCh    chan struct{}
}

// NewPublisher creates a Publisher for the given broker URL.
func NewPublisher(brokerURL string, st *state.RadioState) (*Publisher, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	return &Publisher{
		State:       st,
		options:     opts,
		topicPrefix: topicPrefix,
		notifyCh:    make(chan struct{}, 1),
	}, nil
}

// Notify marks the state dirty. Safe to call from the state observer.
func (p *Publisher) Notify() {
	select {
	case p.notifyCh <- struct{}{}:
	default:
	}
}

// Name implements framework.Named.
func (p *Publisher) Name() string {
	return "mqtt-publisher"
}

// Run implements framework.Runnable.
func (p *Publisher) Run(ctx context.Context) error {
	client := paho.NewClient(p.options)
	token := client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return err
	}
	defer client.Disconnect(250)
	glog.V(1).Infof("publishing to %s/...", p.topicPrefix)

	throttle := time.NewTicker(minPublishInterval)
	defer throttle.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.notifyCh:
		}
		p.publish(client)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-throttle.C:
		}
	}
}

func (p *Publisher) publish(client paho.Client) {
	snap := snapshot{
		Status:        p.State.ConnectionStatus().String(),
		Mode:          p.State.Mode().String(),
		Device:        p.State.DeviceConfig(),
		Telemetry:     p.State.LiveTelemetry(),
		UptimeSeconds: int64(p.State.Uptime() / time.Second),
	}
	if err := p.State.LastError(); err != nil {
		snap.Error = err.Error()
	}
	p.publishJSON(client, p.topicPrefix+"/telemetry", snap)

	if p.State.SpectrumFresh(time.Second) {
		bins, ts := p.State.Spectrum()
		p.publishJSON(client, p.topicPrefix+"/spectrum", map[string]interface{}{
			"bins": bins,
			"ts":   ts.UnixMilli(),
		})
	}
}

func (p *Publisher) publishJSON(client paho.Client, topic string, v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		glog.Errorf("marshal %s: %v", topic, err)
		return
	}
	// Fire and forget: QoS 0, no wait on the token.
	client.Publish(topic, 0, false, payload)
}
