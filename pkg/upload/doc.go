// Package upload stores files dropped on FileDrop zones.
//
// Files travel over HTTP, not the live socket: a large body would stall
// heartbeats and the event loop. The flow is
//
//  1. FileDrop hands each accepted file to an Uploader
//  2. Client POSTs it to the server's /upload endpoint as multipart "file"
//  3. Handler streams it into a Store and answers {"ref": "..."}
//  4. The ref travels in the files_dropped payload over the socket
//  5. The event handler calls Store.Claim(ref) to consume the file
//
// Mount the handler on the router:
//
//	r.Method(http.MethodPost, "/upload", upload.NewHandler(store, upload.Config{}, logger))
//
// DiskStore keeps files in a directory; S3Store puts them in a bucket.
// Client reports itself as blocking, so FileDrop uploads through it off
// the event loop. StoreUploader skips HTTP when the hook runtime and the
// store share a process, and runs on the loop.
package upload
