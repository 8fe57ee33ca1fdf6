// Package radio registers the transmitter control commands with the
// operator console.
package radio

import (
	"fmt"
	"strconv"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/rcwire/elrsctl/pkg/cli/sh"
	"github.com/rcwire/elrsctl/pkg/transmitter"
)

var (
	// ArmCmd raises the AUX1 arm switch.
	ArmCmd = ishell.Cmd{
		Name: "arm",
		Help: "raise the arm switch (motors may spin)",
		Func: sh.MustBeOpen(func(c *ishell.Context) {
			sh.ShellFrom(c).TX().SetArmed(true)
		}),
	}

	// DisarmCmd lowers the AUX1 arm switch.
	DisarmCmd = ishell.Cmd{
		Name: "disarm",
		Help: "lower the arm switch",
		Func: sh.MustBeOpen(func(c *ishell.Context) {
			sh.ShellFrom(c).TX().SetArmed(false)
		}),
	}

	// EStopCmd zeroes all controls and disarms.
	EStopCmd = ishell.Cmd{
		Name:    "estop",
		Aliases: []string{"!"},
		Help:    "emergency stop: zero all axes and disarm",
		Func: sh.MustBeOpen(func(c *ishell.Context) {
			sh.ShellFrom(c).TX().EmergencyStop()
		}),
	}

	// SticksCmd sets the control axes.
	SticksCmd = ishell.Cmd{
		Name: "sticks",
		Help: "ROLL PITCH YAW THROTTLE (axes -1..1, throttle 0..1)",
		Func: sh.MustBeOpen(func(c *ishell.Context) {
			if len(c.Args) < 4 {
				c.Err(fmt.Errorf("usage: sticks ROLL PITCH YAW THROTTLE"))
				return
			}
			var axes [4]float64
			for i, arg := range c.Args[:4] {
				v, err := strconv.ParseFloat(arg, 64)
				if err != nil {
					c.Err(err)
					return
				}
				axes[i] = v
			}
			tx := sh.ShellFrom(c).TX()
			in := tx.GetControlInputs()
			in.Roll, in.Pitch, in.Yaw, in.Throttle = axes[0], axes[1], axes[2], axes[3]
			tx.SetControlInputs(in)
		}),
	}

	// BindCmd puts the module into binding mode.
	BindCmd = ishell.Cmd{
		Name: "bind",
		Help: "enter binding mode",
		Func: sh.MustBeOpen(func(c *ishell.Context) {
			mspErr(c, sh.ShellFrom(c).TX().SendBind())
		}),
	}

	// PowerCmd steps TX power.
	PowerCmd = ishell.Cmd{
		Name: "power",
		Help: "up|down",
		Func: sh.MustBeOpen(func(c *ishell.Context) {
			tx := sh.ShellFrom(c).TX()
			switch {
			case len(c.Args) > 0 && c.Args[0] == "up":
				mspErr(c, tx.SendPowerUp())
			case len(c.Args) > 0 && c.Args[0] == "down":
				mspErr(c, tx.SendPowerDown())
			default:
				c.Err(fmt.Errorf("usage: power up|down"))
			}
		}),
	}

	// ModelCmd selects a model slot.
	ModelCmd = ishell.Cmd{
		Name: "model",
		Help: "ID",
		Func: sh.MustBeOpen(func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("usage: model ID"))
				return
			}
			id, err := strconv.ParseUint(c.Args[0], 10, 8)
			if err != nil {
				c.Err(err)
				return
			}
			mspErr(c, sh.ShellFrom(c).TX().SendModelSelect(byte(id)))
		}),
	}

	// StatsCmd requests link statistics.
	StatsCmd = ishell.Cmd{
		Name: "stats",
		Help: "[spectrum] request link statistics",
		Func: sh.MustBeOpen(func(c *ishell.Context) {
			spectrum := len(c.Args) > 0 && c.Args[0] == "spectrum"
			mspErr(c, sh.ShellFrom(c).TX().SendLinkStatsRequest(spectrum))
		}),
	}

	// DiscoverCmd scans the crossfire bus.
	DiscoverCmd = ishell.Cmd{
		Name: "discover",
		Help: "scan for ELRS devices",
		Func: sh.MustBeOpen(func(c *ishell.Context) {
			mspErr(c, sh.ShellFrom(c).TX().SendDeviceDiscovery())
		}),
	}

	// StatusCmd prints the current state snapshot.
	StatusCmd = ishell.Cmd{
		Name:    "status",
		Aliases: []string{"st"},
		Func: func(c *ishell.Context) {
			s := sh.ShellFrom(c)
			live := s.State.LiveTelemetry()
			c.Printf("link:   %s (%s)\n", s.State.ConnectionStatus(), s.State.Mode())
			c.Printf("rssi:   %d / %d dBm  lq %d%%  snr %d  power %dmW\n",
				live.RSSI1, live.RSSI2, live.LinkQuality, live.SNR, live.TxPower)
			c.Printf("batt:   %.2fV %.2fA\n", live.Voltage, live.Current)
			c.Printf("pkts:   rx %d  tx %d  lost %d (%.1f%% loss)\n",
				live.PacketsReceived, live.PacketsTransmitted, live.PacketsLost,
				s.State.PacketLossRate())
			c.Printf("fresh:  %v  uptime %s\n",
				s.State.TelemetryFresh(time.Second), s.State.Uptime().Round(time.Second))
			if err := s.State.LastError(); err != nil {
				c.Printf("error:  %v\n", err)
			}
		},
	}

	// HistoryCmd prints recent signal history.
	HistoryCmd = ishell.Cmd{
		Name: "history",
		Help: "[N] print recent RSSI/LQ samples",
		Func: func(c *ishell.Context) {
			n := 10
			if len(c.Args) > 0 {
				if v, err := strconv.Atoi(c.Args[0]); err == nil {
					n = v
				}
			}
			s := sh.ShellFrom(c)
			c.Printf("rssi: %v\n", s.State.RSSIHistory(n))
			c.Printf("lq:   %v\n", s.State.LinkQualityHistory(n))
			c.Printf("pwr:  %v\n", s.State.TxPowerHistory(n))
		},
	}
)

func mspErr(c *ishell.Context, err error) {
	if err == transmitter.ErrNotConnected {
		c.Err(fmt.Errorf("port not open"))
		return
	}
	if err != nil {
		c.Err(err)
	}
}

func init() {
	sh.AddCmds(
		&ArmCmd,
		&DisarmCmd,
		&EStopCmd,
		&SticksCmd,
		&BindCmd,
		&PowerCmd,
		&ModelCmd,
		&StatsCmd,
		&DiscoverCmd,
		&StatusCmd,
		&HistoryCmd,
	)
}
