// Package middleware groups the Fiber middleware used by the HTTP server.
//
// # Components
//
//   - auth: Rejects requests without the configured key in the X-API-Key
//     header or the api_key query parameter.
//   - rayid: Assigns every request a ray id, stored in the "ray_id" local
//     for logger.WithRayID and echoed in the X-Ray-ID response header.
package middleware
