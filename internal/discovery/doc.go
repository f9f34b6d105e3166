// Package discovery advertises cryptosocket servers on the local network
// over mDNS and browses for them.
//
// A server registers as "_cryptosocket._tcp" in the "local." domain. Its
// TXT record carries the key fingerprint so that a client can compare it
// with the key presented during the handshake.
package discovery
