package acme

import "github.com/haproxytech/acme-core/acme/resources"

// AuthNode is one element of the singly linked list of pending
// authorizations a Ctx works through during the AUTH/CHALLENGE/CHKCHALLENGE
// states. The list is headed at Ctx.Auths; Ctx.NextAuth always points at
// either nil or a node that is a member of that list. It is never an
// independent pointer into some other collection.
type AuthNode struct {
	// AuthURL is the authorization resource URL, taken from the Order's
	// Authorizations slice.
	AuthURL string
	// ChallURL is the URL of the challenge selected for this authorization,
	// populated once the AUTH state has fetched and inspected the
	// authorization resource.
	ChallURL string
	// Token is the challenge token, populated at the same time as
	// ChallURL. Combined with the account key thumbprint this yields the
	// key authorization a challenge response publishes.
	Token string
	// Status is the last status seen for this node ("pending", "valid",
	// "invalid", ...): the authorization's status after AUTH, then the
	// selected challenge's status after CHALLENGE and CHKCHALLENGE.
	Status string
	// Next is the following node in the list, or nil at the tail.
	Next *AuthNode
}

// BuildAuthChain constructs the singly linked list of AuthNode values from
// an Order's Authorizations URLs, preserving the server's ordering. It does
// not fetch or populate ChallURL/Token/Status; those are filled in as the
// AUTH state visits each node.
func BuildAuthChain(order *resources.Order) *AuthNode {
	var head, tail *AuthNode
	for _, url := range order.Authorizations {
		node := &AuthNode{AuthURL: url}
		if head == nil {
			head = node
		} else {
			tail.Next = node
		}
		tail = node
	}
	return head
}

// Len walks the list starting at n and counts its nodes. The driver itself
// never needs a length, only traversal.
func (n *AuthNode) Len() int {
	count := 0
	for cur := n; cur != nil; cur = cur.Next {
		count++
	}
	return count
}
