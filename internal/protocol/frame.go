package protocol

import "strconv"

// messageSkeletonLen is len("message +l #"): the fixed, non-digit,
// non-payload bytes of a framed message command, per spec.md §4.6.
const messageSkeletonLen = len("message +l #")

// ExpectedMessageLen computes the declared length a correctly-framed
// message of payloadLen bytes must carry in its "+l<N>" tail, per
// spec.md §4.6: len(payload) + digits(len(payload)) + |"message +l #"|.
//
// This same value is the canonical "message length" compared against
// a consumer's ack (spec.md §4.4): both sides derive it from the
// payload length rather than re-measuring wire bytes, so publisher
// validation and ack matching always agree.
func ExpectedMessageLen(payloadLen int) int {
	return payloadLen + len(strconv.Itoa(payloadLen)) + messageSkeletonLen
}

// EncodeMessageFrame renders the wire form of a message command:
// message +l<N> #"<payload>"
func EncodeMessageFrame(payload []byte, declaredLen int) []byte {
	out := make([]byte, 0, len("message +l")+8+len(" #\"")+len(payload)+1)
	out = append(out, "message +l"...)
	out = strconv.AppendInt(out, int64(declaredLen), 10)
	out = append(out, ` #"`...)
	out = append(out, payload...)
	out = append(out, '"')
	return out
}

// EncodeOkFrame renders the wire form of a consumer ack: ok +l<N> #
func EncodeOkFrame(declaredLen int) []byte {
	out := make([]byte, 0, len("ok +l")+8+len(" #"))
	out = append(out, "ok +l"...)
	out = strconv.AppendInt(out, int64(declaredLen), 10)
	out = append(out, " #"...)
	return out
}
