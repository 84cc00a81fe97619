package pcap

import (
	"NetProfiler/internal/engine/protocol"
	"NetProfiler/internal/model"
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	log "github.com/sirupsen/logrus"
)

// pcapng files start with a Section Header Block.
const ngMagic = 0x0A0D0D0A

type packetSource interface {
	gopacket.PacketDataSource
	LinkType() layers.LinkType
}

// Stats counts what a read pass saw.
type Stats struct {
	TotalPackets int // every packet in the capture
	IPPackets    int // packets that produced a record
	Undecodable  int // packets whose layers failed to decode before the IP header
}

// Reader reads packets from a pcap or pcapng file.
type Reader struct {
	file   *os.File
	source packetSource
	parser *protocol.Parser
}

// NewReader opens a capture file. The format is detected from its magic number.
func NewReader(filePath string) (*Reader, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	r, err := newReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to open capture '%s': %w", filePath, err)
	}
	r.file = f
	return r, nil
}

// NewStreamReader reads a capture from an arbitrary stream, e.g. an HTTP body.
func NewStreamReader(in io.Reader) (*Reader, error) {
	return newReader(in)
}

func newReader(in io.Reader) (*Reader, error) {
	br := bufio.NewReader(in)
	head, err := br.Peek(4)
	if err != nil {
		return nil, fmt.Errorf("failed to read capture header: %w", err)
	}

	var source packetSource
	if binary.BigEndian.Uint32(head) == ngMagic {
		ng, err := pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
		if err != nil {
			return nil, fmt.Errorf("invalid pcapng stream: %w", err)
		}
		source = ng
	} else {
		pr, err := pcapgo.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("invalid pcap stream: %w", err)
		}
		source = pr
	}
	return &Reader{source: source, parser: protocol.NewParser(true)}, nil
}

// SetIncludeIPv6 controls whether IPv6 packets produce records.
func (r *Reader) SetIncludeIPv6(include bool) {
	r.parser = protocol.NewParser(include)
}

// Close closes the underlying file, if any.
func (r *Reader) Close() {
	if r.file != nil {
		r.file.Close()
	}
}

// ReadPackets reads every packet in capture order, numbering them from 0,
// and sends a record for each IP packet to out. Non-IP packets are skipped
// without renumbering. The channel is not closed.
func (r *Reader) ReadPackets(ctx context.Context, out chan<- *model.PacketRecord) (Stats, error) {
	var stats Stats
	linkType := r.source.LinkType()

	for index := 0; ; index++ {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		data, ci, err := r.source.ReadPacketData()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) {
				log.WithField("index", index).Warn("Capture truncated, stopping read.")
				break
			}
			return stats, fmt.Errorf("failed to read packet %d: %w", index, err)
		}
		stats.TotalPackets++

		packet := gopacket.NewPacket(data, linkType, gopacket.Default)
		packet.Metadata().CaptureInfo = ci

		rec, err := r.parser.Parse(index, packet)
		if err != nil {
			if errors.Is(err, protocol.ErrUndecodable) {
				stats.Undecodable++
				log.WithField("index", index).Debugf("Error parsing packet: %v", err)
			}
			continue
		}
		stats.IPPackets++

		select {
		case out <- rec:
		case <-ctx.Done():
			return stats, ctx.Err()
		}
	}
	return stats, nil
}

// ReadAll reads the whole capture into memory.
func (r *Reader) ReadAll(ctx context.Context) ([]*model.PacketRecord, Stats, error) {
	out := make(chan *model.PacketRecord, 1024)
	var records []*model.PacketRecord
	done := make(chan struct{})
	go func() {
		defer close(done)
		for rec := range out {
			records = append(records, rec)
		}
	}()

	stats, err := r.ReadPackets(ctx, out)
	close(out)
	<-done
	return records, stats, err
}
