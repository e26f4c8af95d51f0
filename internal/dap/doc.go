/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

/*
Package dap provides the Debug Adapter Protocol (DAP) plumbing used by the debuggee mirror.

# Key Components

  - Transport: reads and writes DAP messages over a TCP/stdio stream or a WebSocket
  - Dial: connects to a debug adapter, retrying until the adapter accepts the connection
  - RequestBuilder: creates the requests the mirror sends, with sequence numbers unique per session
  - PendingRequests: tracks outstanding requests until their responses arrive
  - Classify: decodes raw JSON into typed go-dap messages, falling back to generic
    messages for commands and events the go-dap library does not know

# Message Flow

 1. The client builds a request and registers it as pending
 2. The request is written to the transport
 3. The response is read back and correlated with the pending request via request_seq
 4. Events are delivered as they arrive; they are never correlated
*/
package dap
