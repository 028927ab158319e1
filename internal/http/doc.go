// Package http exposes the booking services over a JSON API.
//
// Identity is asserted by the X-User-Email header and resolved by the Identify
// middleware; anonymous requests may read the catalog and register a student
// account. Every booking request needs an identity. Payload field names
// follow the campus frontend (Ma_phong, Ngay, Ca, trang_thai and so on), and
// error messages are Vietnamese.
//
// Routes:
//   - GET /healthz, GET /stats
//   - GET|POST /rooms, GET|PATCH|DELETE /rooms/:code,
//     GET /rooms/:code/bookings, GET /rooms/:code/availability?date=&slot=
//   - GET|POST /bookings, GET /bookings/:id,
//     POST /bookings/:id/approve, POST /bookings/:id/reject, POST /bookings/:id/cancel
//   - GET|POST /users, GET /users/:code/bookings, GET /me, PUT /me/password
//   - GET /slots, GET /slots/:period
package http
