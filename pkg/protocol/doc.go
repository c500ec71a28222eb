// ABOUTME: Tempo wire protocol package
// ABOUTME: Defines protocol messages and the WebSocket client
// Package protocol implements the Tempo conversion wire protocol.
//
// Control messages are JSON envelopes with a type string and payload.
// Audio travels as binary frames: one type byte, a big-endian sample
// offset, then the chunk bytes. Clients upload s16le PCM and receive
// the encoded WAV stream the same way.
//
// Example:
//
//	client := protocol.NewClient(protocol.Config{ServerAddr: "localhost:8937"})
//	if err := client.Connect(); err != nil {
//		log.Fatal(err)
//	}
//	err = client.SendConvertStart(protocol.ConvertStart{JobID: id, Rate: 1.5})
package protocol
