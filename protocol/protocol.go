// Package protocol implements the framed link between the robot and host
// tools: VLQ-encoded messages inside CRC16-checked, sequence-numbered frames.
package protocol

// Version is reported by the robot in response to identify
const Version = "linebot-0.3.0"

// Frame layout: [len, seq, payload..., crcHi, crcLo, sync]
const (
	MessageHeaderSize  = 2
	MessageTrailerSize = 3
	MessageLengthMin   = MessageHeaderSize + MessageTrailerSize
	MessageLengthMax   = 64
	MessagePositionLen = 0
	MessagePositionSeq = 1
	MessageTrailerCRC  = 3
	MessageTrailerSync = 1
	MessageValueSync   = 0x7E
	MessageDest        = 0x10
	MessageSeqMask     = 0x0F

	// MessageMax bounds a scratch buffer holding several frames.
	MessageMax = 512
)

// frameStatus is the outcome of scanning the head of a byte stream
type frameStatus uint8

const (
	frameOK       frameStatus = iota // a complete, valid frame
	frameNeedMore                    // valid so far, wait for more bytes
	frameBad                         // framing/CRC error, resynchronize
)

// scanFrame validates the frame at the start of data. On frameOK it returns
// the payload slice, the sequence byte and the frame length.
func scanFrame(data []byte) (payload []byte, seq uint8, n int, status frameStatus) {
	if len(data) < MessageLengthMin {
		return nil, 0, 0, frameNeedMore
	}
	msgLen := int(data[MessagePositionLen])
	if msgLen < MessageLengthMin || msgLen > MessageLengthMax {
		return nil, 0, 0, frameBad
	}
	seq = data[MessagePositionSeq]
	if seq&^MessageSeqMask != MessageDest {
		return nil, 0, 0, frameBad
	}
	if len(data) < msgLen {
		return nil, 0, 0, frameNeedMore
	}
	if data[msgLen-MessageTrailerSync] != MessageValueSync {
		return nil, 0, 0, frameBad
	}
	frameCRC := uint16(data[msgLen-MessageTrailerCRC])<<8 |
		uint16(data[msgLen-MessageTrailerCRC+1])
	if frameCRC != CRC16(data[:msgLen-MessageTrailerSize]) {
		return nil, 0, 0, frameBad
	}
	return data[MessageHeaderSize : msgLen-MessageTrailerSize], seq, msgLen, frameOK
}

// nextSeq returns the sequence that follows seq, wrapping within 0x10-0x1F
func nextSeq(seq uint8) uint8 {
	return ((seq + 1) & MessageSeqMask) | MessageDest
}

// SplitFrames extracts the payload of every valid frame in data. Sync
// bytes, ACK frames and corrupt bytes are skipped; a trailing partial frame
// is returned as rest so the caller can prepend it to the next read.
func SplitFrames(data []byte) (payloads [][]byte, rest []byte) {
	for len(data) > 0 {
		if data[0] == MessageValueSync {
			data = data[1:]
			continue
		}
		payload, _, n, status := scanFrame(data)
		switch status {
		case frameNeedMore:
			return payloads, data
		case frameBad:
			data = data[1:]
			continue
		}
		if len(payload) > 0 {
			payloads = append(payloads, payload)
		}
		data = data[n:]
	}
	return payloads, nil
}
