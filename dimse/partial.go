package dimse

import (
	"fmt"

	"github.com/mdimse/dimse/dimseerr"
	"github.com/mdimse/dimse/pdu"
)

// PartialMessage is the provider's `partial` slot (spec §3): the
// in-progress inbound message being reassembled out of P_DATA_TF PDUs
// on a single presentation context. A fresh PartialMessage is created
// when none is in progress and discarded once decodeMsg reports
// completion.
type PartialMessage struct {
	contextID      byte
	commandBytes   []byte
	command        Message
	dataBytes      []byte
	readAllCommand bool
	readAllData    bool
}

// ContextID returns the presentation context this message arrived on.
// Only meaningful once decodeMsg has returned true.
func (p *PartialMessage) ContextID() byte { return p.contextID }

// Command returns the decoded command. Only meaningful once decodeMsg
// has returned true.
func (p *PartialMessage) Command() Message { return p.command }

// DataBytes returns the reassembled Data Set payload. Only meaningful
// once decodeMsg has returned true.
func (p *PartialMessage) DataBytes() []byte { return p.dataBytes }

// decodeMsg feeds one inbound P_DATA_TF to the in-progress message. It
// returns true exactly once, on the PDU that completes the message:
// the last command fragment when no Data Set is expected, or the last
// data fragment otherwise. A PDV whose header disagrees with the
// current reassembly state is an invalid-message error.
func (p *PartialMessage) decodeMsg(pdata *pdu.PDataTf) (bool, error) {
	for _, item := range pdata.Items {
		if p.contextID == 0 {
			p.contextID = item.ContextID
		} else if p.contextID != item.ContextID {
			return false, dimseerr.New(dimseerr.PeerProtocol, fmt.Errorf("decodeMsg: mixed presentation context: %d vs %d", p.contextID, item.ContextID))
		}
		if item.Command {
			if p.readAllCommand {
				return false, dimseerr.New(dimseerr.PeerProtocol, fmt.Errorf("decodeMsg: command fragment arrived after the last-fragment bit was seen"))
			}
			p.commandBytes = append(p.commandBytes, item.Value...)
			if item.Last {
				p.readAllCommand = true
			}
		} else {
			if !p.readAllCommand {
				return false, dimseerr.New(dimseerr.PeerProtocol, fmt.Errorf("decodeMsg: data fragment arrived before the command set was complete"))
			}
			if p.readAllData {
				return false, dimseerr.New(dimseerr.PeerProtocol, fmt.Errorf("decodeMsg: data fragment arrived after the last-fragment bit was seen"))
			}
			p.dataBytes = append(p.dataBytes, item.Value...)
			if item.Last {
				p.readAllData = true
			}
		}
	}
	if !p.readAllCommand {
		return false, nil
	}
	if p.command == nil {
		command, err := DecodeMessage(p.commandBytes)
		if err != nil {
			return false, dimseerr.New(dimseerr.PeerProtocol, fmt.Errorf("decodeMsg: failed to interpret command set: %w", err))
		}
		p.command = command
	}
	if p.command.HasData() && !p.readAllData {
		return false, nil
	}
	return true, nil
}
