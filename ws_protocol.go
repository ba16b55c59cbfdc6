package oscplot

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
)

// Binary websocket protocol ("ws2"). Every message is an 8-byte envelope
// header followed by a payload. Used by machine consumers such as
// oscplot-dump; the browser UI uses the JSON stream on /ws instead.
const (
	ProtocolVersion byte = 1

	MessageTypeData      byte = 0x01
	MessageTypeMetadata  byte = 0x02
	MessageTypeStreamEnd byte = 0x03

	EnvelopeHeaderSize = 8
)

// EnvelopeHeader prefixes every message on the wire.
type EnvelopeHeader struct {
	Version  byte
	Reserved [2]byte
	Type     byte
	Length   uint32 // payload length in bytes
}

// DataMessage is a DATA payload (type 0x01): a chunk of the series as
// parallel tick/value arrays.
type DataMessage struct {
	SeriesID uint32
	Length   uint32 // number of tick/value pairs
	Ticks    []float64
	Values   []float64
}

// WSMessage is a decoded message: header plus one of DataMessage, Metadata
// or StreamEndedMessage.
type WSMessage struct {
	Header  EnvelopeHeader
	Payload interface{}
}

func EncodeEnvelopeHeader(env EnvelopeHeader) []byte {
	buf := make([]byte, EnvelopeHeaderSize)
	buf[0] = env.Version
	buf[1] = env.Reserved[0]
	buf[2] = env.Reserved[1]
	buf[3] = env.Type
	binary.LittleEndian.PutUint32(buf[4:8], env.Length)
	return buf
}

func DecodeEnvelopeHeader(buf []byte) (EnvelopeHeader, error) {
	if len(buf) < EnvelopeHeaderSize {
		return EnvelopeHeader{}, fmt.Errorf("buffer too short: expected at least %d bytes, got %d", EnvelopeHeaderSize, len(buf))
	}

	env := EnvelopeHeader{
		Version: buf[0],
		Type:    buf[3],
		Length:  binary.LittleEndian.Uint32(buf[4:8]),
	}
	env.Reserved[0] = buf[1]
	env.Reserved[1] = buf[2]

	return env, nil
}

func putFloat64s(buf []byte, values []float64) int {
	offset := 0
	for _, v := range values {
		binary.LittleEndian.PutUint64(buf[offset:offset+8], math.Float64bits(v))
		offset += 8
	}
	return offset
}

func getFloat64s(buf []byte, n uint32) []float64 {
	values := make([]float64, n)
	offset := 0
	for i := uint32(0); i < n; i++ {
		values[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[offset : offset+8]))
		offset += 8
	}
	return values
}

// EncodeDataMessage encodes a DATA payload. The tick and value arrays must
// both match the declared pair count.
func EncodeDataMessage(msg DataMessage) ([]byte, error) {
	if len(msg.Ticks) != len(msg.Values) {
		return nil, fmt.Errorf("tick and value arrays must have same length: ticks=%d, values=%d", len(msg.Ticks), len(msg.Values))
	}
	if uint32(len(msg.Ticks)) != msg.Length {
		return nil, fmt.Errorf("Length field (%d) doesn't match array length (%d)", msg.Length, len(msg.Ticks))
	}

	// SeriesID(4) + Length(4) + ticks + values
	buf := make([]byte, 8+msg.Length*8*2)
	binary.LittleEndian.PutUint32(buf[0:4], msg.SeriesID)
	binary.LittleEndian.PutUint32(buf[4:8], msg.Length)

	offset := 8
	offset += putFloat64s(buf[offset:], msg.Ticks)
	putFloat64s(buf[offset:], msg.Values)

	return buf, nil
}

func DecodeDataMessage(buf []byte) (DataMessage, error) {
	if len(buf) < 8 {
		return DataMessage{}, fmt.Errorf("buffer too short for DATA message: expected at least 8 bytes, got %d", len(buf))
	}

	msg := DataMessage{
		SeriesID: binary.LittleEndian.Uint32(buf[0:4]),
		Length:   binary.LittleEndian.Uint32(buf[4:8]),
	}

	// Computed in uint64 so a crafted Length cannot wrap the comparison.
	expectedSize := 8 + uint64(msg.Length)*8*2
	if uint64(len(buf)) != expectedSize {
		return DataMessage{}, fmt.Errorf("buffer size mismatch: expected %d bytes for %d pairs, got %d", expectedSize, msg.Length, len(buf))
	}

	msg.Ticks = getFloat64s(buf[8:], msg.Length)
	msg.Values = getFloat64s(buf[8+msg.Length*8:], msg.Length)

	return msg, nil
}

// encodeJSONPayload wraps a JSON document in the length-prefixed form used
// by the METADATA and STREAM_END payloads.
func encodeJSONPayload(v interface{}) ([]byte, error) {
	jsonData, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	buf := make([]byte, 4+len(jsonData))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(jsonData)))
	copy(buf[4:], jsonData)

	return buf, nil
}

func decodeJSONPayload(buf []byte, v interface{}) error {
	if len(buf) < 4 {
		return fmt.Errorf("buffer too short for JSON payload: expected at least 4 bytes, got %d", len(buf))
	}

	jsonLength := binary.LittleEndian.Uint32(buf[0:4])
	if uint32(len(buf)) != 4+jsonLength {
		return fmt.Errorf("buffer size mismatch: expected %d bytes, got %d", 4+jsonLength, len(buf))
	}

	return json.Unmarshal(buf[4:], v)
}

func EncodeMetadataMessage(metadata Metadata) ([]byte, error) {
	return encodeJSONPayload(metadata)
}

func DecodeMetadataMessage(buf []byte) (Metadata, error) {
	var metadata Metadata
	if err := decodeJSONPayload(buf, &metadata); err != nil {
		return Metadata{}, fmt.Errorf("failed to decode metadata: %w", err)
	}

	return metadata, nil
}

func EncodeStreamEndMessage(msg StreamEndedMessage) ([]byte, error) {
	return encodeJSONPayload(msg)
}

func DecodeStreamEndMessage(buf []byte) (StreamEndedMessage, error) {
	var msg StreamEndedMessage
	if err := decodeJSONPayload(buf, &msg); err != nil {
		return StreamEndedMessage{}, fmt.Errorf("failed to decode stream end message: %w", err)
	}

	return msg, nil
}

// EncodeWSMessage encodes a complete message (envelope + payload). The
// header Length is derived from the encoded payload.
func EncodeWSMessage(msg WSMessage) ([]byte, error) {
	var payload []byte
	var err error

	switch msg.Header.Type {
	case MessageTypeData:
		dataMsg, ok := msg.Payload.(DataMessage)
		if !ok {
			return nil, fmt.Errorf("payload type mismatch: expected DataMessage for type 0x%02x, got %T", msg.Header.Type, msg.Payload)
		}
		payload, err = EncodeDataMessage(dataMsg)
	case MessageTypeMetadata:
		metadata, ok := msg.Payload.(Metadata)
		if !ok {
			return nil, fmt.Errorf("payload type mismatch: expected Metadata for type 0x%02x, got %T", msg.Header.Type, msg.Payload)
		}
		payload, err = EncodeMetadataMessage(metadata)
	case MessageTypeStreamEnd:
		streamEnd, ok := msg.Payload.(StreamEndedMessage)
		if !ok {
			return nil, fmt.Errorf("payload type mismatch: expected StreamEndedMessage for type 0x%02x, got %T", msg.Header.Type, msg.Payload)
		}
		payload, err = EncodeStreamEndMessage(streamEnd)
	default:
		return nil, fmt.Errorf("unknown message type: 0x%02x", msg.Header.Type)
	}

	if err != nil {
		return nil, err
	}

	msg.Header.Length = uint32(len(payload))
	header := EncodeEnvelopeHeader(msg.Header)

	fullMsg := make([]byte, 0, len(header)+len(payload))
	fullMsg = append(fullMsg, header...)
	fullMsg = append(fullMsg, payload...)

	return fullMsg, nil
}

// DecodeWSMessage decodes a complete message (envelope + payload).
func DecodeWSMessage(buf []byte) (WSMessage, error) {
	env, err := DecodeEnvelopeHeader(buf)
	if err != nil {
		return WSMessage{}, err
	}

	expectedSize := uint64(EnvelopeHeaderSize) + uint64(env.Length)
	if uint64(len(buf)) < expectedSize {
		return WSMessage{}, fmt.Errorf("buffer too short: expected %d bytes (header + payload), got %d", expectedSize, len(buf))
	}

	payloadBytes := buf[EnvelopeHeaderSize : EnvelopeHeaderSize+int(env.Length)]

	var payload interface{}
	switch env.Type {
	case MessageTypeData:
		payload, err = DecodeDataMessage(payloadBytes)
	case MessageTypeMetadata:
		payload, err = DecodeMetadataMessage(payloadBytes)
	case MessageTypeStreamEnd:
		payload, err = DecodeStreamEndMessage(payloadBytes)
	default:
		return WSMessage{}, fmt.Errorf("unknown message type: 0x%02x", env.Type)
	}

	if err != nil {
		return WSMessage{}, err
	}

	return WSMessage{
		Header:  env,
		Payload: payload,
	}, nil
}
