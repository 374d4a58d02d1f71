package diagrams

// SampleDiagrams is the static gallery served to unauthenticated visitors.
var SampleDiagrams = []Diagram{
	{
		Title: "Customer Support Ticket Workflow",
		Sequence: `Customer->Website: submits support ticket
Website->Support System: create new ticket
Support System->Slack: notify support team
Support Agent->Support System: claim ticket
Support System->Customer: "Alex is now assisting you"
Support Agent->Customer: responds with solution
Customer->Support Agent: confirms issue is resolved
Support Agent->Support System: close ticket`,
	},
	{
		Title: "Online Course Enrollment",
		Sequence: `User->Course Website: clicks "Buy Course"
Course Website->Payment Gateway: initiate payment
Payment Gateway->Bank: process card payment
Bank->Payment Gateway: payment success
Payment Gateway->Course Website: confirm purchase
Course Website->User Account: enroll user in course
User Account->User: "You're enrolled!"`,
	},
	{
		Title: "Food Delivery Order Flow",
		Sequence: `Customer->Mobile App: places food order
Mobile App->Restaurant: new order notification
Restaurant->Kitchen: start preparing food
Restaurant->Delivery App: assign delivery rider
Rider->Restaurant: arrives for pickup
Restaurant->Rider: hand over food
Rider->Customer: deliver order
Customer->Mobile App: leave a review`,
	},
	{
		Title: "Event Registration and Check-In",
		Sequence: `Attendee->Event Page: registers for event
Event Page->Email System: send QR ticket
Email System->Attendee: deliver ticket
Attendee->Check-In App: scan QR code
Check-In App->Database: validate ticket
Database->Check-In App: ticket valid
Check-In App->Attendee: allow entry`,
	},
	{
		Title: "Job Application Process",
		Sequence: `Candidate->Job Portal: applies for job
Job Portal->Recruiter: notify of new applicant
Recruiter->ATS: move to "review"
ATS->Recruiter: suggest interview
Recruiter->Candidate: invite to interview
Candidate->Recruiter: accepts interview
Recruiter->Calendar App: schedule meeting
Calendar App->Candidate: send invite`,
	},
	{
		Title: "E-commerce Checkout Flow",
		Sequence: `Shopper->Product Page: clicks "Add to Cart"
Product Page->Cart System: add item
Shopper->Cart: proceeds to checkout
Cart->Payment Gateway: process payment
Payment Gateway->Bank: authorize payment
Bank->Payment Gateway: approved
Payment Gateway->Cart: payment confirmed
Cart->Fulfillment System: initiate delivery`,
	},
	{
		Title: "Client Onboarding (Design Agency)",
		Sequence: `Client->Website Form: submits project inquiry
Website Form->CRM: create client lead
CRM->Project Manager: assign new lead
Project Manager->Client: schedules intro call
Client->Project Manager: joins call
Project Manager->Design Team: share brief
Design Team->Client: send proposal
Client->Design Team: approve proposal`,
	},
	{
		Title: "Subscription Renewal Reminder",
		Sequence: `Scheduler->Billing System: check subscriptions
Billing System->CRM: fetch expiring accounts
CRM->Email Service: send renewal reminder
Email Service->User: "Your subscription ends soon!"
User->Billing Portal: renew subscription
Billing Portal->Payment Processor: process renewal
Payment Processor->Billing Portal: payment successful
Billing Portal->CRM: update subscription status`,
	},
	{
		Title: "Parent-Teacher Conference Booking",
		Sequence: `Parent->School Portal: selects teacher & time
School Portal->Calendar System: reserve time slot
Calendar System->Teacher: notify of booking
Calendar System->Parent: confirm booking
Parent->School Portal: uploads notes
School Portal->Teacher: share notes
Teacher->Parent: confirms readiness`,
	},
	{
		Title: "Startup Investor Pitch Process",
		Sequence: `Founder->Website: submits pitch deck
Website->CRM: log investor request
CRM->Startup Analyst: assign for review
Startup Analyst->Founder: requests call
Founder->Analyst: joins pitch call
Analyst->Partner Team: shares evaluation
Partner Team->CRM: mark as potential deal
CRM->Founder: follow-up with decision`,
	},
}
