package topology

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	platformVersion = "4.1"
	zoneID          = "multiple_machines"
	zoneRouting     = "Full"

	xmlHeader = `<?xml version="1.0" encoding="utf-8"?>` + "\n"
	doctype   = `<!DOCTYPE platform SYSTEM "https://simgrid.org/simgrid.dtd">` + "\n"
)

type platformXML struct {
	XMLName xml.Name `xml:"platform"`
	Version string   `xml:"version,attr"`
	Zone    zoneXML  `xml:"zone"`
}

type zoneXML struct {
	ID      string    `xml:"id,attr"`
	Routing string    `xml:"routing,attr"`
	Hosts   []hostXML `xml:"host"`
}

type hostXML struct {
	ID    string `xml:"id,attr"`
	Speed string `xml:"speed,attr"`
}

// Encode writes p as a SimGrid platform document: one Full-routed zone
// holding every compute host and then the control host.
func Encode(w io.Writer, p *Platform) error {
	doc := platformXML{
		Version: platformVersion,
		Zone: zoneXML{
			ID:      zoneID,
			Routing: zoneRouting,
			Hosts:   make([]hostXML, 0, len(p.Hosts)+1),
		},
	}
	for _, h := range p.Hosts {
		doc.Zone.Hosts = append(doc.Zone.Hosts, hostXML{ID: h.ID, Speed: fmt.Sprintf("%.2fGf", h.Speed)})
	}
	// The control host is written in the coarser Mf unit.
	doc.Zone.Hosts = append(doc.Zone.Hosts, hostXML{
		ID:    p.Control.ID,
		Speed: fmt.Sprintf("%.0fMf", p.Control.Speed*1e3),
	})

	if _, err := io.WriteString(w, xmlHeader+doctype); err != nil {
		return errors.Wrap(err, "writing platform prolog")
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return errors.Wrap(err, "encoding platform")
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return errors.Wrap(err, "writing platform")
	}
	return nil
}

func Marshal(p *Platform) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, p); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode reads a platform document written by Encode. The host with id
// master_host becomes the control host; speed classes are not recoverable
// and are left empty.
func Decode(r io.Reader) (*Platform, error) {
	var doc platformXML
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "decoding platform")
	}

	p := &Platform{}
	foundControl := false
	for _, h := range doc.Zone.Hosts {
		speed, err := ParseSpeed(h.Speed)
		if err != nil {
			return nil, errors.Wrapf(err, "host %s", h.ID)
		}
		if h.ID == ControlHostID {
			p.Control = Host{ID: h.ID, Speed: speed}
			foundControl = true
			continue
		}
		p.Hosts = append(p.Hosts, Host{ID: h.ID, Speed: speed})
	}
	if !foundControl {
		return nil, errors.Errorf("platform has no %s host", ControlHostID)
	}
	return p, nil
}

var speedUnits = map[string]float64{
	"f":  1e-9,
	"kf": 1e-6,
	"Mf": 1e-3,
	"Gf": 1,
	"Tf": 1e3,
	"Pf": 1e6,
}

// ParseSpeed converts a SimGrid speed attribute such as "12.50Gf" or
// "100Mf" to Gflop/s.
func ParseSpeed(s string) (float64, error) {
	s = strings.TrimSpace(s)
	for _, unit := range []string{"kf", "Mf", "Gf", "Tf", "Pf", "f"} {
		if !strings.HasSuffix(s, unit) {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSuffix(s, unit), 64)
		if err != nil {
			return 0, errors.Wrapf(err, "parsing speed %q", s)
		}
		return v * speedUnits[unit], nil
	}
	return 0, errors.Errorf("speed %q has no flop unit", s)
}
