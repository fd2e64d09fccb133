/*
package msutil runs text sessions on top of the textsocket codec.

Overview:

	// Serve every accepted connection with a Session.
	connecter := msutil.NewConnecter(handler, log, msutil.Options{
		MaxFramePayload: 1024,
	})
	srv := textsocket.NewServer("tcp://:9001", connecter, log)
	err := srv.Run(ctx)

A Session can also be driven by hand:

	s := msutil.NewSession(id, conn, handler, log, msutil.Options{})
	err := s.Run(ctx) // blocks until the stream is done

	// From any goroutine while the session is open.
	err = s.Send("hello")

Client side:

	c, err := msutil.Dial(ctx, "tcp://localhost:9001", "/chat", log)
	if err != nil {
		// handle err
	}
	defer c.Close()

	err = c.Send("hello")
	text, err := c.Receive()

Set Options.Negotiator to a DebugNegotiator to see raw handshake bytes.
*/
package msutil
