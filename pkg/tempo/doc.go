// ABOUTME: High-level Tempo library API
// ABOUTME: Provides simple Converter, Remote, and Server APIs for most use cases
// Package tempo provides high-level APIs for Tempo time-scale conversion.
//
// This is the main entry point for most library users, providing:
//   - Converter: Change the playback rate of audio in process
//   - Remote: Upload audio to a conversion server and collect the result
//   - Server: Host a conversion service over WebSocket and HTTP
//
// For lower-level control, see the audio, stretch, wav, decode, and
// protocol packages.
//
// Example Converter:
//
//	converter, err := tempo.NewConverter(tempo.ConverterConfig{})
//	result, err := converter.ConvertFile(ctx, "in.wav", "out.wav", 1.5)
//
// Example Server:
//
//	server, err := tempo.NewServer(tempo.ServerConfig{
//	    Port: 8938,
//	    Name: "Workshop Converter",
//	})
//	err = server.Start()
package tempo
